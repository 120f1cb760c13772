package replay

import (
	"github.com/shopspring/decimal"
	"github.com/zulandar/sightline/internal/models"
)

// Side is the projection of one request record shown in a comparison.
type Side struct {
	Model           string          `json:"model"`
	InputTokens     int             `json:"input_tokens"`
	OutputTokens    int             `json:"output_tokens"`
	TotalCostUSD    decimal.Decimal `json:"total_cost_usd"`
	DurationMs      int64           `json:"duration_ms"`
	Status          string          `json:"status"`
	ResponseContent *string         `json:"response_content"`
	ErrorCode       string          `json:"error_code,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// Deltas are replay minus original; positive means the replay is larger.
type Deltas struct {
	CostUSD      decimal.Decimal `json:"cost_usd"`
	DurationMs   int64           `json:"duration_ms"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
}

// Comparison is the side-by-side view of an original and its replay.
type Comparison struct {
	Original Side   `json:"original"`
	Replay   Side   `json:"replay"`
	Deltas   Deltas `json:"deltas"`

	// ResponseMatch is true when both sides carry response content and the
	// two strings are byte-for-byte equal.
	ResponseMatch bool `json:"response_match"`
}

// SideOf projects a record into a comparison side.
func SideOf(rec *models.RequestRecord) Side {
	return Side{
		Model:           rec.Model,
		InputTokens:     rec.InputTokens,
		OutputTokens:    rec.OutputTokens,
		TotalCostUSD:    rec.TotalCostUSD,
		DurationMs:      rec.DurationMs,
		Status:          rec.Status,
		ResponseContent: rec.Meta().ResponseContent,
		ErrorCode:       rec.ErrorCode,
		ErrorMessage:    rec.ErrorMessage,
	}
}

// Compare builds the comparison between an original record and its replay.
func Compare(original, replay *models.RequestRecord) Comparison {
	o, r := SideOf(original), SideOf(replay)
	return Comparison{
		Original: o,
		Replay:   r,
		Deltas: Deltas{
			CostUSD:      r.TotalCostUSD.Sub(o.TotalCostUSD),
			DurationMs:   r.DurationMs - o.DurationMs,
			InputTokens:  r.InputTokens - o.InputTokens,
			OutputTokens: r.OutputTokens - o.OutputTokens,
		},
		ResponseMatch: o.ResponseContent != nil && r.ResponseContent != nil &&
			*o.ResponseContent == *r.ResponseContent,
	}
}
