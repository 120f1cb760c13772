package replay

import (
	"github.com/shopspring/decimal"
	"github.com/zulandar/sightline/internal/models"
)

var tokensPerMillion = decimal.NewFromInt(1_000_000)

// Cost is the priced outcome of a call, in US dollars.
type Cost struct {
	InputUSD  decimal.Decimal
	OutputUSD decimal.Decimal
	TotalUSD  decimal.Decimal
}

// CalculateCost prices token usage with the model's current per-million rates.
func CalculateCost(m *models.Model, inputTokens, outputTokens int) Cost {
	in := decimal.NewFromInt(int64(inputTokens)).Div(tokensPerMillion).Mul(m.InputPricePerMillion)
	out := decimal.NewFromInt(int64(outputTokens)).Div(tokensPerMillion).Mul(m.OutputPricePerMillion)
	return Cost{
		InputUSD:  in,
		OutputUSD: out,
		TotalUSD:  in.Add(out),
	}
}
