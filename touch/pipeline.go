// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package touch

import (
	"fmt"
	"sync"
)

// PipelineError reports that the reader goroutine stopped.
type PipelineError struct {
	Err error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("touch: input pipeline stopped: %v", e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Message is one item of the mailbox. Exactly one of Sample and Err is set.
// A message carrying Err is always the last one.
type Message struct {
	Sample *Sample
	Err    *PipelineError
}

// Pipeline runs a Reader on a dedicated goroutine.
type Pipeline struct {
	mu    sync.Mutex
	queue []Message
	done  chan struct{}
}

// Start starts reading r. Every Sample is queued in arrival order; the queue
// is unbounded.
func Start(r Reader) *Pipeline {
	p := &Pipeline{done: make(chan struct{})}
	go p.run(r)
	return p
}

func (p *Pipeline) run(r Reader) {
	defer close(p.done)
	for {
		s, err := r.ReadSample()
		if err != nil {
			p.push(Message{Err: &PipelineError{Err: err}})
			return
		}
		if s != nil {
			p.push(Message{Sample: s})
		}
	}
}

func (p *Pipeline) push(m Message) {
	p.mu.Lock()
	p.queue = append(p.queue, m)
	p.mu.Unlock()
}

// Drain returns every queued message and empties the queue. It never blocks
// on the reader.
func (p *Pipeline) Drain() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	out := p.queue
	p.queue = nil
	return out
}

// Done is closed once the reader goroutine returned.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}
