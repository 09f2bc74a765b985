package replay

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Recorder appends replay records to a writer as a turn streams.
// Safe for use from the single streaming goroutine; the mutex only
// guards against a concurrent Close.
type Recorder struct {
	mu    sync.Mutex
	w     io.Writer
	close func() error
	start time.Time
	now   func() time.Time
}

// NewRecorder records to w. The clock is injectable for tests; nil
// means time.Now.
func NewRecorder(w io.Writer, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{w: w, now: now}
}

// CreateRecorder records to a new file at path, creating parent
// directories as needed.
func CreateRecorder(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create recording directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	rec := NewRecorder(f, nil)
	rec.close = f.Close
	return rec, nil
}

// Start writes the leading request record and anchors the timestamp
// offsets. Must be called exactly once, before any Event call.
func (r *Recorder) Start(request any) error {
	data, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = r.now()
	return r.write(Record{Type: "request", Timestamp: 0, Data: data})
}

// Event appends one stream event record with its millisecond offset
// from Start. The raw payload is stored untouched so replay sees the
// exact bytes the wire delivered.
func (r *Recorder) Event(eventType string, raw []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(Record{
		Type:      eventType,
		Timestamp: r.now().Sub(r.start).Milliseconds(),
		Data:      raw,
	})
}

func (r *Recorder) write(rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := r.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close releases the underlying file if the recorder owns one.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.close != nil {
		return r.close()
	}
	return nil
}
