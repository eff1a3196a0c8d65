package oracle

import "fmt"

// StructuringPrompt is the system instruction for the first oracle call: it
// turns a free-form financial question into the structured request JSON.
//
// Periods are normalized to tokens the market data provider understands;
// year-to-date is the default horizon when the question states none.
const StructuringPrompt = "You are a financial assistant that receives questions in natural language. " +
	"You must return ONLY valid JSON with no extra text. " +
	"JSON structure: grouped by requested metrics, then by ticker, then by periods/dates. " +
	"Include only the metrics actually requested. " +
	"Normalize all periods into terms Yahoo Finance understands: " +
	"`1mo`, `3mo`, `6mo`, `1y`, `5y`, `ytd` or specific years such as `2022`, `2025`. " +
	"IMPORTANT: if no time horizon is explicitly stated, use `ytd` (Year-to-Date) as the default period. " +
	"Generic example:\n" +
	"{\n" +
	"  \"return\": {\"AAPL\": {\"1y\": null, \"ytd\": null}},\n" +
	"  \"compare\": {\"return\": {\"AAPL\": {\"ytd\": null}, \"GOOGL\": {\"ytd\": null}}}\n" +
	"}\n" +
	"Tickers: official symbols (Apple=AAPL, Google=GOOGL). " +
	"Possible metrics: return, volatility, fundamentals, max_min, compare. " +
	"Do not add any text outside the JSON."

// SummaryPrompt builds the user message for the second oracle call, asking
// for a structured professional narrative over the resolved result JSON.
func SummaryPrompt(resultJSON string) string {
	return fmt.Sprintf("Analyze this financial JSON and produce a professional, well-structured answer. "+
		"Use a clear format with separate paragraphs, numbering where appropriate, and technical but "+
		"accessible language. Always include the specific numeric values and percentages. "+
		"Structure the answer as follows: 1) Brief introduction, 2) Main data with specific values, "+
		"3) Comparative analysis if present, 4) Conclusions. JSON: %s", resultJSON)
}
