package server

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/deeprlabs/deepr/stream"
)

// writeSSEChunk renders one stream.Chunk as an OpenAI-style
// chat.completion.chunk SSE frame. Think/URL/thinking-end chunks carry
// their text in delta.content wrapped the same way the scheduler's own
// <think>...</think> convention does; the terminal text chunk carries the
// final answer. Error chunks are sent as a best-effort content line since
// the OpenAI chunk schema has no dedicated error field mid-stream.
func writeSSEChunk(w io.Writer, model string, chunk stream.Chunk) error {
	var content string
	switch chunk.Type {
	case stream.ChunkThink, stream.ChunkThinkingEnd, stream.ChunkText:
		content = chunk.Text
	case stream.ChunkURL:
		content = chunk.URL + "\n"
	case stream.ChunkError:
		content = "\n\n[error: " + chunk.Text + "]"
	}

	resp := chatCompletionResponse{
		Object: "chat.completion.chunk",
		Model:  model,
		Choices: []chatChoice{{
			Index: 0,
			Delta: chatMessage{Content: content},
		}},
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", body)
	return err
}
