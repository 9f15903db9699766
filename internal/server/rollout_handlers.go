package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/deepfolio/internal/market"
	"github.com/aristath/deepfolio/internal/rollout"
)

// MaxEpisodesPerRequest bounds POST /api/rollouts.
const MaxEpisodesPerRequest = 64

// RolloutRequest is the body of POST /api/rollouts. Zero values fall back to
// the rollout configuration.
type RolloutRequest struct {
	Episodes int       `json:"episodes"`
	Policy   string    `json:"policy"`
	Seed     uint64    `json:"seed"`
	Weights  []float64 `json:"weights,omitempty"` // constant policy only
}

// RolloutResponse is returned by POST /api/rollouts.
type RolloutResponse struct {
	Summary  rollout.Summary    `json:"summary"`
	Episodes []*rollout.Episode `json:"episodes"`
}

func (s *Server) handleRunRollouts(w http.ResponseWriter, r *http.Request) {
	if s.tables == nil || s.runner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "rollouts not configured")
		return
	}

	var req RolloutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	if req.Episodes == 0 {
		req.Episodes = s.cfg.Rollout.Episodes
	}
	if req.Policy == "" {
		req.Policy = s.cfg.Rollout.Policy
	}
	if req.Episodes < 1 || req.Episodes > MaxEpisodesPerRequest {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("episodes must be in [1,%d]", MaxEpisodesPerRequest))
		return
	}

	table, err := s.tables(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, market.ErrInsufficientData) {
			status = http.StatusUnprocessableEntity
		}
		s.log.Error().Err(err).Msg("Failed to load feature table")
		s.writeError(w, status, err.Error())
		return
	}

	policy, err := s.policyFor(req, table)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := rollout.Jobs(table, s.cfg.Env, policy, req.Episodes, req.Seed, s.log)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	episodes, err := s.runner.RunParallel(r.Context(), jobs)
	if err != nil {
		s.log.Error().Err(err).Msg("Rollout failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, RolloutResponse{
		Summary:  rollout.Summarize(episodes),
		Episodes: episodes,
	})
}

func (s *Server) policyFor(req RolloutRequest, table *market.Table) (rollout.Policy, error) {
	if req.Policy == rollout.PolicyConstant && len(req.Weights) > 0 {
		if len(req.Weights) != table.NumAssets() {
			return nil, fmt.Errorf("weights has %d entries, table has %d assets", len(req.Weights), table.NumAssets())
		}
		return rollout.NewConstantPolicy(req.Weights), nil
	}
	return rollout.NewPolicy(req.Policy, table.NumAssets(), s.cfg.Env.WindowSize, table.FeaturesPerAsset(), s.cfg.Network, s.log)
}

func (s *Server) handleLastRollout(w http.ResponseWriter, r *http.Request) {
	s.jobsMu.RLock()
	job := s.rolloutJob
	s.jobsMu.RUnlock()

	if job == nil {
		s.writeError(w, http.StatusNotFound, "no scheduled rollout job")
		return
	}
	summary, ok := job.LastSummary()
	if !ok {
		s.writeError(w, http.StatusNotFound, "scheduled rollout has not completed yet")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	s.jobsMu.RLock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.jobsMu.RUnlock()
	sort.Strings(names)

	s.writeJSON(w, http.StatusOK, map[string][]string{"jobs": names})
}

func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.jobsMu.RLock()
	job, ok := s.jobs[name]
	s.jobsMu.RUnlock()
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown job %q", name))
		return
	}

	s.log.Info().Str("job", name).Msg("Manual job trigger")
	if err := job.Run(); err != nil {
		s.log.Error().Err(err).Str("job", name).Msg("Manual job failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "completed", "job": name})
}
