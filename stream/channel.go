// Package stream implements the single-producer/single-consumer progress
// channel described in spec.md §4.4: a FIFO queue of "think" text fed by
// the scheduler, drained by one consumer with natural-typing pacing, and
// preemptible into a drain-and-finalize sequence once the terminal answer
// is ready.
package stream

import (
	"context"
	"sync"
)

// ChunkType names the kind of user-visible chunk emitted by the consumer.
type ChunkType string

const (
	ChunkThink       ChunkType = "think"
	ChunkURL         ChunkType = "url"
	ChunkThinkingEnd ChunkType = "thinking_end"
	ChunkText        ChunkType = "text"
	ChunkError       ChunkType = "error"
)

// Chunk is one unit written to the response stream.
type Chunk struct {
	Type ChunkType
	Text string
	URL  string
}

// item is one queued unit of work: either plain think text to be typed
// out, or (for Visit actions) a URL chunk that must precede any think
// text for that step.
type item struct {
	urls  []string
	think string
}

// Channel is the scheduler-to-response bridge. The scheduler (the sole
// producer) calls Enqueue per dispatched step; a single goroutine (the
// sole consumer, started by Run) drains the queue and writes Chunks to
// Out in strict step order.
type Channel struct {
	mu        sync.Mutex
	queue     []item
	notify    chan struct{}
	streaming bool
	finalized bool
	hasError  bool
	finalText string
	finalErr  string
	closed    bool

	Out chan Chunk

	// done is closed once Run has emitted the closing chunks (or the
	// error chunk) and closed Out; if ctx is canceled first, Run closes
	// Out without the closing chunks. Finalize and FinalizeError block on
	// it so they never write to or close Out themselves, which is what
	// let them race Run's emit goroutine before.
	done chan struct{}

	pacer Pacer
}

// New creates a Channel ready to accept Enqueue calls before Run starts.
func New(pacer Pacer) *Channel {
	if pacer == nil {
		pacer = defaultPacer{}
	}
	return &Channel{
		notify:    make(chan struct{}, 1),
		streaming: true,
		Out:       make(chan Chunk, 64),
		done:      make(chan struct{}),
		pacer:     pacer,
	}
}

// Enqueue appends a step's chunks to the FIFO queue. Safe to call
// concurrently with Run, but only ever called by the scheduler goroutine
// per spec's single-producer rule.
func (c *Channel) Enqueue(urls []string, think string) {
	c.mu.Lock()
	if c.finalized || c.closed {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, item{urls: urls, think: think})
	c.mu.Unlock()
	c.wake()
}

func (c *Channel) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// SetStreaming(false) signals client disconnect: the current generator
// observes it at its next yield point and dumps remaining text in one
// write, per spec's backpressure rule.
func (c *Channel) SetStreaming(streaming bool) {
	c.mu.Lock()
	c.streaming = streaming
	c.mu.Unlock()
	c.wake()
}

func (c *Channel) isStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Run drains the queue until ctx is canceled or Finalize/FinalizeError has
// flushed everything. It emits the opening "<think>" marker before the
// first chunk and must be started exactly once; items enqueued before it
// starts are kept in order. Run is the sole writer of Out and the sole closer of
// it, so Finalize never needs to write to or close Out itself; it just
// waits on done.
func (c *Channel) Run(ctx context.Context) {
	defer close(c.done)
	defer c.closeOut()

	c.Out <- Chunk{Type: ChunkThink, Text: "<think>"}
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			if c.finalized {
				c.mu.Unlock()
				c.emitFinal()
				return
			}
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-c.notify:
				continue
			}
		}
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		c.emit(ctx, next)
	}
}

// emitFinal writes the closing thinking_end marker followed by the final
// text or error chunk, then closes Out. Called only from Run, once the
// queue has fully drained after finalization, so it never overlaps with
// emit's writes to Out.
func (c *Channel) emitFinal() {
	c.mu.Lock()
	hasError := c.hasError
	text := c.finalText
	errText := c.finalErr
	c.mu.Unlock()

	c.Out <- Chunk{Type: ChunkThinkingEnd, Text: "</think>\n\n"}
	if hasError {
		c.Out <- Chunk{Type: ChunkError, Text: errText}
	} else {
		c.Out <- Chunk{Type: ChunkText, Text: text}
	}
	c.closeOut()
}

// emit streams one item: its URL chunks first (Visit actions), then its
// think text paced by the natural-typing generator, unless streaming has
// been turned off, in which case the whole item is flushed in one write.
func (c *Channel) emit(ctx context.Context, it item) {
	for _, u := range it.urls {
		c.Out <- Chunk{Type: ChunkURL, URL: u}
	}
	if it.think == "" {
		return
	}
	if !c.isStreaming() {
		c.Out <- Chunk{Type: ChunkThink, Text: it.think}
		return
	}
	for _, frag := range c.pacer.Pace(ctx, it.think, c.isStreaming) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		c.Out <- Chunk{Type: ChunkThink, Text: frag}
	}
}

// Finalize implements drain-and-finalize preemption: setting streaming to
// false forces the consumer's pacer to flush any in-flight item in one
// write (defaultPacer.Pace observes isStreaming going false at its next
// yield point), the remaining queue then drains through the normal emit
// path, and only once it's empty does Run emit the thinking_end marker
// and the final chunk. Finalize blocks until that has happened, so the
// caller never observes a half-finalized channel.
func (c *Channel) Finalize(finalText string) {
	c.mu.Lock()
	c.streaming = false
	c.finalized = true
	c.finalText = finalText
	c.mu.Unlock()

	c.wake()
	<-c.done
}

// FinalizeError implements the error path of §7: the queue is dropped
// without draining (an error short-circuits whatever was still in
// flight), then Run emits the closing thinking_end chunk followed by the
// error chunk. Like Finalize, it blocks until Run has done so.
func (c *Channel) FinalizeError(errText string) {
	c.mu.Lock()
	c.streaming = false
	c.queue = nil
	c.finalized = true
	c.hasError = true
	c.finalErr = errText
	c.mu.Unlock()

	c.wake()
	<-c.done
}

func (c *Channel) closeOut() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.Out)
}
