package llm

import (
	"context"
	"io"
	"sync"
)

// Stream yields canonical events until io.EOF.
type Stream interface {
	Recv() (StreamEvent, error)
	Close() error
}

// eventStream adapts a producer goroutine to the Stream interface.
// Closing cancels the producer's context; a cancelled stream surfaces
// whatever the producer returned and then io.EOF semantics apply.
type eventStream struct {
	events chan StreamEvent
	cancel context.CancelFunc

	mu      sync.Mutex
	prodErr error
	done    chan struct{}
}

// newEventStream starts producer in a goroutine and returns a Stream
// over the events it emits. The producer must return once its events
// channel send would block forever (the context it receives is cancelled
// by Close).
func newEventStream(ctx context.Context, producer func(ctx context.Context, events chan<- StreamEvent) error) Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &eventStream{
		events: make(chan StreamEvent, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.events)
		err := producer(ctx, s.events)
		s.mu.Lock()
		s.prodErr = err
		s.mu.Unlock()
	}()
	return s
}

func (s *eventStream) Recv() (StreamEvent, error) {
	ev, ok := <-s.events
	if !ok {
		s.mu.Lock()
		err := s.prodErr
		s.mu.Unlock()
		if err != nil {
			return StreamEvent{}, err
		}
		return StreamEvent{}, io.EOF
	}
	return ev, nil
}

func (s *eventStream) Close() error {
	s.cancel()
	// Drain so the producer is never stuck on a send.
	for range s.events {
	}
	<-s.done
	return nil
}
