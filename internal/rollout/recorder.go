package rollout

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Recorder persists finished episodes.
type Recorder interface {
	Record(ep *Episode) error
}

// MsgpackRecorder appends episodes to a stream as consecutive msgpack values.
// It is safe for concurrent use.
type MsgpackRecorder struct {
	mu     sync.Mutex
	enc    *msgpack.Encoder
	closer io.Closer
}

// NewMsgpackRecorder writes to w. Close does not close w.
func NewMsgpackRecorder(w io.Writer) *MsgpackRecorder {
	return &MsgpackRecorder{enc: msgpack.NewEncoder(w)}
}

// OpenMsgpackFile appends to path, creating it if needed.
func OpenMsgpackFile(path string) (*MsgpackRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open episode file: %w", err)
	}
	r := NewMsgpackRecorder(f)
	r.closer = f
	return r, nil
}

// Record implements Recorder.
func (r *MsgpackRecorder) Record(ep *Episode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(ep); err != nil {
		return fmt.Errorf("failed to encode episode %s: %w", ep.ID, err)
	}
	return nil
}

// Close releases the underlying file, if the recorder opened one.
func (r *MsgpackRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// ReadEpisodes decodes every episode in a stream written by MsgpackRecorder.
func ReadEpisodes(rd io.Reader) ([]Episode, error) {
	dec := msgpack.NewDecoder(rd)
	var episodes []Episode
	for {
		var ep Episode
		err := dec.Decode(&ep)
		if errors.Is(err, io.EOF) {
			return episodes, nil
		}
		if err != nil {
			return episodes, fmt.Errorf("failed to decode episode %d: %w", len(episodes), err)
		}
		episodes = append(episodes, ep)
	}
}

// ReadEpisodesFile opens path and decodes it with ReadEpisodes.
func ReadEpisodesFile(path string) ([]Episode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open episode file: %w", err)
	}
	defer f.Close()
	return ReadEpisodes(f)
}
