package extract

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

// ModelTier is the pricing family of a model name.
type ModelTier string

const (
	TierOpus   ModelTier = "opus"
	TierSonnet ModelTier = "sonnet"
	TierHaiku  ModelTier = "haiku"
	TierOther  ModelTier = "other"
)

// ModelPricing holds per-million-token pricing for a single model tier.
type ModelPricing struct {
	InputPerMillion      decimal.Decimal
	OutputPerMillion     decimal.Decimal
	CacheReadPerMillion  decimal.Decimal
	CacheWritePerMillion decimal.Decimal
}

// DefaultPricing maps model tiers to their per-million-token pricing.
// Unknown tiers are priced as sonnet.
var DefaultPricing = map[ModelTier]ModelPricing{
	TierOpus: {
		InputPerMillion:      decimal.NewFromFloat(15.0),
		OutputPerMillion:     decimal.NewFromFloat(75.0),
		CacheReadPerMillion:  decimal.NewFromFloat(1.5),
		CacheWritePerMillion: decimal.NewFromFloat(18.75),
	},
	TierSonnet: {
		InputPerMillion:      decimal.NewFromFloat(3.0),
		OutputPerMillion:     decimal.NewFromFloat(15.0),
		CacheReadPerMillion:  decimal.NewFromFloat(0.3),
		CacheWritePerMillion: decimal.NewFromFloat(3.75),
	},
	TierHaiku: {
		InputPerMillion:      decimal.NewFromFloat(0.25),
		OutputPerMillion:     decimal.NewFromFloat(1.25),
		CacheReadPerMillion:  decimal.NewFromFloat(0.03),
		CacheWritePerMillion: decimal.NewFromFloat(0.3),
	},
}

var oneMillion = decimal.NewFromInt(1_000_000)

// ClassifyModelTier maps a model name to its pricing tier.
func ClassifyModelTier(modelName string) ModelTier {
	lower := strings.ToLower(modelName)
	switch {
	case strings.Contains(lower, "opus"):
		return TierOpus
	case strings.Contains(lower, "sonnet"):
		return TierSonnet
	case strings.Contains(lower, "haiku"):
		return TierHaiku
	default:
		return TierOther
	}
}

// PricingFor returns the pricing of a model's tier.
func PricingFor(model string) ModelPricing {
	if p, ok := DefaultPricing[ClassifyModelTier(model)]; ok {
		return p
	}
	return DefaultPricing[TierSonnet]
}

// UsageCost prices one response's token usage.
func UsageCost(model string, u claude.Usage) decimal.Decimal {
	p := PricingFor(model)
	cost := decimal.NewFromInt(u.InputTokens).Mul(p.InputPerMillion)
	cost = cost.Add(decimal.NewFromInt(u.OutputTokens).Mul(p.OutputPerMillion))
	cost = cost.Add(decimal.NewFromInt(u.CacheReadInputTokens).Mul(p.CacheReadPerMillion))
	cost = cost.Add(decimal.NewFromInt(u.CacheCreationInputTokens).Mul(p.CacheWritePerMillion))
	return cost.Div(oneMillion)
}

// EstimateCost is a claude.CostFunc backed by DefaultPricing.
func EstimateCost(model string, u claude.Usage) float64 {
	return UsageCost(model, u).InexactFloat64()
}
