// Package replay records and replays the event stream of a single turn
// as newline-delimited JSON. A recording starts with a request record at
// timestamp 0 followed by one record per stream event with its
// millisecond offset. Replaying a log through the accumulator with a
// deterministic id source reproduces the exact state a live run built.
package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/plumekit/plume/internal/llm"
)

// Record is one NDJSON line of a replay log.
type Record struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Log is a parsed replay log: the originating request plus the recorded
// event sequence in arrival order.
type Log struct {
	Request Record
	Events  []Record
}

// Load reads a replay log from disk. Unlike stream parsing this fails
// loudly: a log is a test fixture, and an empty file or one that does
// not begin with a request record is a broken fixture, not something to
// tolerate.
func Load(path string) (*Log, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay log: %w", err)
	}
	defer file.Close()

	log, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse replay log %s: %w", path, err)
	}
	return log, nil
}

// Parse reads a replay log from r. See Load for the validation contract.
func Parse(r io.Reader) (*Log, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("log is empty")
	}

	var first Record
	if err := json.Unmarshal(scanner.Bytes(), &first); err != nil {
		return nil, fmt.Errorf("first line is not valid JSON: %w", err)
	}
	if first.Type != "request" {
		return nil, fmt.Errorf("first record has type %q, want \"request\"", first.Type)
	}

	log := &Log{Request: first}
	line := 1
	for scanner.Scan() {
		line++
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d is not valid JSON: %w", line, err)
		}
		log.Events = append(log.Events, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return log, nil
}

// Run replays every recorded event through the accumulator and returns
// the final state. Given a deterministic id source the result is
// byte-identical to what the live run produced.
func (l *Log) Run(ids *llm.IdentityPolicy) *llm.TurnState {
	state := llm.NewTurnState()
	for _, rec := range l.Events {
		ev := llm.ParseStreamEvent(rec.Type, rec.Data)
		state = llm.Reduce(state, ev, ids)
	}
	return state
}
