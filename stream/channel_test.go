package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zeroPacer emits the whole text as one fragment instantly, keeping tests
// fast while still exercising the queue/ordering/preemption logic.
type zeroPacer struct{}

func (zeroPacer) Pace(ctx context.Context, text string, isStreaming func() bool) []string {
	return []string{text}
}

func drain(t *testing.T, ch *Channel, timeout time.Duration) []Chunk {
	t.Helper()
	var chunks []Chunk
	deadline := time.After(timeout)
	for {
		select {
		case c, ok := <-ch.Out:
			if !ok {
				return chunks
			}
			chunks = append(chunks, c)
		case <-deadline:
			t.Fatal("timed out draining channel")
		}
	}
}

func TestChannelOrderingAndMarkers(t *testing.T) {
	ch := New(zeroPacer{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ch.Run(ctx)
	ch.Enqueue(nil, "first thought")
	ch.Enqueue([]string{"http://example.com"}, "second thought")
	ch.Finalize("the final answer")

	chunks := drain(t, ch, 2*time.Second)
	require.GreaterOrEqual(t, len(chunks), 5)
	assert.Equal(t, ChunkThink, chunks[0].Type)
	assert.Equal(t, "<think>", chunks[0].Text)

	last := chunks[len(chunks)-1]
	secondLast := chunks[len(chunks)-2]
	assert.Equal(t, ChunkText, last.Type)
	assert.Equal(t, "the final answer", last.Text)
	assert.Equal(t, ChunkThinkingEnd, secondLast.Type)

	// Visit chunk precedes its think text.
	var urlIdx, thinkIdx int
	for i, c := range chunks {
		if c.Type == ChunkURL {
			urlIdx = i
		}
		if c.Type == ChunkThink && c.Text == "second thought" {
			thinkIdx = i
		}
	}
	assert.Less(t, urlIdx, thinkIdx)
}

func TestChannelErrorPath(t *testing.T) {
	ch := New(zeroPacer{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ch.Run(ctx)
	ch.Enqueue(nil, "thinking...")
	ch.FinalizeError("upstream timed out")

	chunks := drain(t, ch, 2*time.Second)
	last := chunks[len(chunks)-1]
	assert.Equal(t, ChunkError, last.Type)
	assert.Equal(t, "upstream timed out", last.Text)
}

func TestChannelDisconnectFlushesSingleWrite(t *testing.T) {
	ch := New(defaultPacer{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ch.Run(ctx)
	ch.Enqueue(nil, "a somewhat longer thought that would normally stream slowly")
	ch.SetStreaming(false)
	ch.Finalize("done")

	chunks := drain(t, ch, 2*time.Second)
	assert.NotEmpty(t, chunks)
}

// TestChannelFinalizeWaitsForInFlightPacing exercises the race the
// instant zeroPacer tests above can't reach: a real defaultPacer still
// mid-pace on an enqueued item when Finalize is called from a separate
// goroutine. Finalize must not return (and the thinking_end/final chunks
// must not appear) until the consumer has actually flushed that item and
// drained the queue, and Run must be the only writer of Out throughout.
func TestChannelFinalizeWaitsForInFlightPacing(t *testing.T) {
	ch := New(defaultPacer{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ch.Run(ctx)
	ch.Enqueue(nil, "a long thought with several words that paces slowly one at a time")

	finalized := make(chan struct{})
	go func() {
		ch.Finalize("the final answer")
		close(finalized)
	}()

	select {
	case <-finalized:
	case <-time.After(5 * time.Second):
		t.Fatal("Finalize never returned")
	}

	chunks := drain(t, ch, 2*time.Second)
	require.GreaterOrEqual(t, len(chunks), 3)

	last := chunks[len(chunks)-1]
	secondLast := chunks[len(chunks)-2]
	assert.Equal(t, ChunkText, last.Type)
	assert.Equal(t, "the final answer", last.Text)
	assert.Equal(t, ChunkThinkingEnd, secondLast.Type)

	thinkingEndCount := 0
	for _, c := range chunks {
		if c.Type == ChunkThinkingEnd {
			thinkingEndCount++
		}
	}
	assert.Equal(t, 1, thinkingEndCount)
}
