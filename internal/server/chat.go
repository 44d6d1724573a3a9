package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deeprlabs/deepr"
	"github.com/deeprlabs/deepr/stream"
)

// chatMessage mirrors the subset of the OpenAI chat message shape this
// server understands: only the last "user" message is used as the
// research question, the rest is accepted and ignored so existing
// OpenAI-compatible clients work unmodified.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message,omitempty"`
	Delta        chatMessage `json:"delta,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

func (s *Server) chatCompletions(c echo.Context) error {
	var req chatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	question := lastUserMessage(req.Messages)
	if question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no user message found")
	}

	if req.Stream {
		return s.streamChat(c, req.Model, question)
	}
	return s.blockingChat(c, req.Model, question)
}

func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func (s *Server) blockingChat(c echo.Context, model, question string) error {
	result, err := s.agent.Answer(c.Request().Context(), question)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := chatCompletionResponse{
		ID:     "deepr-" + c.Response().Header().Get(echo.HeaderXRequestID),
		Object: "chat.completion",
		Model:  model,
		Choices: []chatChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: result.Answer.AnswerText},
			FinishReason: "stop",
		}},
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) streamChat(c echo.Context, model, question string) error {
	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	ctx := c.Request().Context()
	ch := stream.New(nil)
	go ch.Run(ctx)

	done := make(chan error, 1)
	go func() {
		result, err := s.agent.AnswerStreaming(ctx, question, func(ev deepr.StepEvent) {
			ch.Enqueue(ev.URLs, ev.Think)
		})
		if err != nil {
			ch.FinalizeError(err.Error())
			done <- err
			return
		}
		ch.Finalize(result.Answer.AnswerText)
		done <- nil
	}()

	for chunk := range ch.Out {
		if err := writeSSEChunk(resp, model, chunk); err != nil {
			return err
		}
		flusher.Flush()
	}

	fmt.Fprint(resp, "data: [DONE]\n\n")
	flusher.Flush()
	return <-done
}
