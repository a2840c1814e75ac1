package call

// Pricing is a snapshot of the billing rates in effect for one computation.
// Snapshots are replaced, never mutated, so a settings change only applies
// from the next computation onward.
type Pricing struct {
	PricePerMillionInputTokens  float64 `json:"price_per_million_input_tokens"`
	PricePerMillionOutputTokens float64 `json:"price_per_million_output_tokens"`
	PricePer5sTranscription     float64 `json:"price_per_5s_transcription"`
	PricePer10kTTSChars         float64 `json:"price_per_10k_tts_chars"`
	EstimatedTokenLength        int     `json:"estimated_token_length"`
}

func DefaultPricing() Pricing {
	return Pricing{
		PricePerMillionInputTokens:  3.0,
		PricePerMillionOutputTokens: 15.0,
		PricePer5sTranscription:     0.03,
		PricePer10kTTSChars:         0.30,
		EstimatedTokenLength:        4,
	}
}

// EstimateTokens converts a character count to a token count using the
// configured characters-per-token ratio.
func (p Pricing) EstimateTokens(characters int) int64 {
	length := p.EstimatedTokenLength
	if length <= 0 {
		length = 4
	}
	return int64(characters / length)
}

// ComputeCost derives the full cost breakdown from usage totals. It is a pure
// function of its inputs: recomputing from scratch with the same usage and
// pricing always yields the same result.
func ComputeCost(usage UsageStats, pricing Pricing) CostStats {
	cost := CostStats{
		LLMInputCost:      float64(usage.InputTokens) / 1_000_000 * pricing.PricePerMillionInputTokens,
		LLMOutputCost:     float64(usage.OutputTokens) / 1_000_000 * pricing.PricePerMillionOutputTokens,
		TranscriptionCost: usage.TranscriptionSeconds / 5 * pricing.PricePer5sTranscription,
		TTSCost:           float64(usage.TTSCharacters) / 10_000 * pricing.PricePer10kTTSChars,
	}
	cost.TotalCost = cost.LLMInputCost + cost.LLMOutputCost + cost.TranscriptionCost + cost.TTSCost
	return cost
}
