package dto

// PromptRequest is the JSON body accepted by POST /prompt.
type PromptRequest struct {
	Prompt string `json:"prompt" binding:"required" example:"What is AAPL's return this year?"`
}

// PromptResponse is the success envelope returned by POST /prompt.
//
// Result mirrors the structured request produced by the oracle with every
// leaf replaced by a resolved metric value, a comparison aggregate, or null.
// NaturalLanguage carries the oracle-generated narrative; when summary
// generation fails it contains an inline error string instead (the structured
// result is still independently useful).
type PromptResponse struct {
	Status          string         `json:"status" example:"ok"`
	Result          map[string]any `json:"result"`
	NaturalLanguage string         `json:"natural_language"`
}

// CapabilityResponse is the static descriptor returned by GET /.
type CapabilityResponse struct {
	Message     string            `json:"message" example:"Financial Data API"`
	Version     string            `json:"version" example:"1.0.0"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}
