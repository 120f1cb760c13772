package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Request record statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RequestRecord is the audit entry for one inference request. Rows are
// append-only: once written, completion fields are never updated.
type RequestRecord struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID     string  `gorm:"size:64;uniqueIndex" json:"request_id"`
	EnvironmentID string  `gorm:"size:64;not null;index" json:"environment_id"`
	RouteID       *string `gorm:"size:64" json:"route_id"`
	Model         string  `gorm:"size:128;index" json:"model"`
	ProviderID    string  `gorm:"size:64" json:"provider_id"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	InputCostUSD  decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0" json:"input_cost_usd"`
	OutputCostUSD decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0" json:"output_cost_usd"`
	TotalCostUSD  decimal.Decimal `gorm:"type:decimal(20,10);not null;default:0" json:"total_cost_usd"`

	DurationMs   int64  `json:"duration_ms"`
	Status       string `gorm:"size:16;index" json:"status"`
	ErrorCode    string `gorm:"size:64" json:"error_code,omitempty"`
	ErrorMessage string `gorm:"type:text" json:"error_message,omitempty"`

	// ReplayOfID mirrors Metadata.ReplayOf so replays can be listed and
	// excluded from analytics without querying inside the JSON column.
	ReplayOfID *uint                               `gorm:"index" json:"replay_of_id,omitempty"`
	Metadata   datatypes.JSONType[RequestMetadata] `json:"metadata"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Meta returns the decoded metadata of the record.
func (r *RequestRecord) Meta() RequestMetadata {
	return r.Metadata.Data()
}

// IsReplay reports whether the record was produced by a replay.
func (r *RequestRecord) IsReplay() bool {
	return r.ReplayOfID != nil
}

// RequestMetadata is the payload and annotation bag stored with a request.
// Every field is optional; nil (or a zero-length raw value) means the field
// was absent on the original request.
type RequestMetadata struct {
	Messages       []ChatMessage   `json:"messages,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	Tools          json.RawMessage `json:"tools,omitempty"`
	ToolChoice     json.RawMessage `json:"tool_choice,omitempty"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`

	ResponseContent *string `json:"response_content,omitempty"`

	ReplayOf            *uint   `json:"replay_of,omitempty"`
	ModelOverride       *string `json:"model_override,omitempty"`
	RouteIDOverride     *string `json:"route_id_override,omitempty"`
	PlaceholderMessages bool    `json:"placeholder_messages,omitempty"`
}

// ChatMessage is one OpenAI-style chat message. Content and ToolCalls are
// kept as raw JSON so multi-part content survives a round trip unchanged.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	Name       string          `json:"name,omitempty"`
	ToolCalls  json.RawMessage `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}
