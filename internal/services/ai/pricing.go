package ai

import "strings"

// modelPrice is USD per million tokens
type modelPrice struct {
	prompt     float64
	completion float64
}

// Prices are matched by model name prefix, longest prefix first
var modelPrices = []struct {
	prefix string
	price  modelPrice
}{
	{"gpt-4o-mini", modelPrice{prompt: 0.15, completion: 0.60}},
	{"gpt-4o", modelPrice{prompt: 2.50, completion: 10.00}},
	{"gpt-4.1-mini", modelPrice{prompt: 0.40, completion: 1.60}},
	{"gpt-4.1", modelPrice{prompt: 2.00, completion: 8.00}},
	{"claude-haiku-4-5", modelPrice{prompt: 1.00, completion: 5.00}},
	{"claude-3-5-haiku", modelPrice{prompt: 0.80, completion: 4.00}},
	{"claude-sonnet-4", modelPrice{prompt: 3.00, completion: 15.00}},
	{"claude-opus-4", modelPrice{prompt: 15.00, completion: 75.00}},
}

// Cost estimates the USD cost of usage on a model. Unknown models cost 0.
func Cost(model string, usage Usage) float64 {
	m := strings.ToLower(model)
	for _, entry := range modelPrices {
		if strings.HasPrefix(m, entry.prefix) {
			return (float64(usage.PromptTokens)*entry.price.prompt +
				float64(usage.CompletionTokens)*entry.price.completion) / 1_000_000
		}
	}
	return 0
}
