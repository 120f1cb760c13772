package replay

import (
	"encoding/json"

	"github.com/zulandar/sightline/internal/models"
)

// PlaceholderMessage is sent as the only user message when the original
// request carries no messages.
const PlaceholderMessage = "Replay request"

// ChatRequest is the OpenAI-compatible chat-completions payload sent to the
// provider. Optional generation parameters are omitted when absent.
type ChatRequest struct {
	Model          string               `json:"model"`
	Messages       []models.ChatMessage `json:"messages"`
	Stream         bool                 `json:"stream"`
	Temperature    *float64             `json:"temperature,omitempty"`
	MaxTokens      *int                 `json:"max_tokens,omitempty"`
	TopP           *float64             `json:"top_p,omitempty"`
	Tools          json.RawMessage      `json:"tools,omitempty"`
	ToolChoice     json.RawMessage      `json:"tool_choice,omitempty"`
	ResponseFormat json.RawMessage      `json:"response_format,omitempty"`
}

// BuildPayload reconstructs the outbound payload for model from an original
// request's metadata. Streaming is always off. Optional parameters are copied
// only when present on the original and are never defaulted.
//
// The second return value reports whether the placeholder message was
// substituted because the original had no messages.
func BuildPayload(meta models.RequestMetadata, model string) (ChatRequest, bool) {
	req := ChatRequest{
		Model:          model,
		Stream:         false,
		Temperature:    meta.Temperature,
		MaxTokens:      meta.MaxTokens,
		TopP:           meta.TopP,
		Tools:          meta.Tools,
		ToolChoice:     meta.ToolChoice,
		ResponseFormat: meta.ResponseFormat,
	}

	if meta.Messages == nil {
		req.Messages = []models.ChatMessage{placeholder()}
		return req, true
	}
	req.Messages = append([]models.ChatMessage(nil), meta.Messages...)
	return req, false
}

func placeholder() models.ChatMessage {
	content, _ := json.Marshal(PlaceholderMessage)
	return models.ChatMessage{Role: "user", Content: content}
}

// Metadata converts the payload back into the metadata shape stored on the
// replay record.
func (r ChatRequest) Metadata() models.RequestMetadata {
	return models.RequestMetadata{
		Messages:       r.Messages,
		Temperature:    r.Temperature,
		MaxTokens:      r.MaxTokens,
		TopP:           r.TopP,
		Tools:          r.Tools,
		ToolChoice:     r.ToolChoice,
		ResponseFormat: r.ResponseFormat,
		Stream:         r.Stream,
	}
}
