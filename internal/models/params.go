package models

import "fmt"

// Generation parameter bounds exposed by the model-parameter panel.
const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0
	MinMaxTokens   = 100
	MaxMaxTokens   = 5000
)

// GenerationParams are the per-session model knobs.
type GenerationParams struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"top_p"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
}

// DefaultGenerationParams returns the panel's initial slider positions.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature:     1.0,
		TopP:            0.94,
		MaxOutputTokens: 2000,
	}
}

// Validate rejects parameter values outside the panel's ranges.
func (p GenerationParams) Validate() error {
	if p.Temperature < MinTemperature || p.Temperature > MaxTemperature {
		return fmt.Errorf("temperature %.2f out of range [%.1f, %.1f]", p.Temperature, MinTemperature, MaxTemperature)
	}
	if p.TopP < MinTopP || p.TopP > MaxTopP {
		return fmt.Errorf("top_p %.2f out of range [%.1f, %.1f]", p.TopP, MinTopP, MaxTopP)
	}
	if p.MaxOutputTokens < MinMaxTokens || p.MaxOutputTokens > MaxMaxTokens {
		return fmt.Errorf("max_output_tokens %d out of range [%d, %d]", p.MaxOutputTokens, MinMaxTokens, MaxMaxTokens)
	}
	return nil
}
