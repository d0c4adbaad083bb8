package judge

// Pricing is a per-million-token price table for the model service.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPricing matches the default small judgment model.
func DefaultPricing() Pricing {
	return Pricing{
		InputPerMillion:  0.80,
		OutputPerMillion: 4.00,
	}
}

// Cost computes the dollar cost of one call.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}
