package server

import (
	"encoding/json"
	"net/http"

	"github.com/aristath/deepfolio/internal/config"
	"github.com/aristath/deepfolio/internal/encoder"
)

// Version is reported by /health.
const Version = "0.1.0"

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": Version,
		"service": "deepfolio",
	}

	status := http.StatusOK
	if s.historyDB != nil {
		if err := s.historyDB.QuickCheck(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("History database unreachable")
			response["status"] = "degraded"
			response["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			response["database"] = "ok"
		}
	}

	s.writeJSON(w, status, response)
}

// EncoderInfo describes the configured feature encoder.
type EncoderInfo struct {
	Variant   string               `json:"variant"`
	OutputDim int                  `json:"output_dim"`
	NumParams int                  `json:"num_params"`
	KeyDim    int                  `json:"key_dim"`
	Warnings  []string             `json:"warnings"`
	Config    config.NetworkConfig `json:"config"`
}

func (s *Server) handleEncoder(w http.ResponseWriter, r *http.Request) {
	if s.encoder == nil {
		s.writeError(w, http.StatusServiceUnavailable, "encoder not configured")
		return
	}

	info := EncoderInfo{
		Variant:   "latent",
		OutputDim: s.encoder.OutputDim(),
		NumParams: s.encoder.NumParams(),
		Warnings:  s.encoder.Warnings(),
		Config:    s.encoder.Config(),
	}
	if _, ok := s.encoder.(*encoder.AllocationEncoder); ok {
		info.Variant = "allocation"
	}
	if kd, ok := s.encoder.(interface{ KeyDim() int }); ok {
		info.KeyDim = kd.KeyDim()
	}
	if info.Warnings == nil {
		info.Warnings = []string{}
	}

	s.writeJSON(w, http.StatusOK, info)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
