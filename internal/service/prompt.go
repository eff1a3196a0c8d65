// Package service owns the end-to-end prompt pipeline: first oracle call,
// structured request resolution, second oracle call, response assembly.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lmoretti/finquery/internal/logger"
	"github.com/lmoretti/finquery/internal/oracle"
	"github.com/lmoretti/finquery/internal/request"
)

var (
	// ErrOracleParse marks a failed first oracle call or first-stage output
	// that is not valid JSON. The request cannot be resolved at all.
	ErrOracleParse = errors.New("failed to parse structured request from oracle")

	// ErrResolution marks a structured request whose shape is unrecognizable
	// (valid JSON, wrong structure). Also a request-level failure.
	ErrResolution = errors.New("failed to resolve structured request")
)

// Analysis is the outcome of one fully processed prompt.
//
// NaturalLanguage degrades to an inline error string when summary generation
// fails; Result is always populated when Analyze returns a nil error.
type Analysis struct {
	Result          map[string]any
	NaturalLanguage string
}

// PromptService defines the business logic for natural-language analysis.
type PromptService interface {
	Analyze(ctx context.Context, prompt string) (*Analysis, error)
}

type promptService struct {
	oracle oracle.Oracle
	walker *request.Walker
}

// NewPromptService creates the orchestrator over an oracle and a walker.
func NewPromptService(o oracle.Oracle, w *request.Walker) PromptService {
	return &promptService{oracle: o, walker: w}
}

// Analyze runs the linear pipeline:
// received -> request parsed -> data resolved -> summary generated -> responded.
//
// The two early exits are ErrOracleParse (first oracle call failed or returned
// non-JSON) and ErrResolution (structured request shaped unrecognizably).
// Summary generation failure does not abort: the structured result is still
// independently useful, so the narrative degrades to an error string.
func (s *promptService) Analyze(ctx context.Context, prompt string) (*Analysis, error) {
	log := logger.Component("orchestrator")
	log.Debug().Msg("prompt received")

	raw, err := s.oracle.Complete(ctx, oracle.StructuringPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOracleParse, err)
	}

	req, err := request.Parse([]byte(stripFences(raw)))
	if err != nil {
		if errors.Is(err, request.ErrBadShape) {
			return nil, fmt.Errorf("%w: %s", ErrResolution, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrOracleParse, err)
	}
	log.Debug().Int("branches", len(req.Metrics)+len(req.Compare)).Msg("request parsed")

	result := s.walker.Resolve(ctx, req)
	log.Debug().Msg("data resolved")

	return &Analysis{
		Result:          result,
		NaturalLanguage: s.summarize(ctx, result),
	}, nil
}

// summarize runs the second oracle call; any failure becomes an inline error
// string instead of aborting the response.
func (s *promptService) summarize(ctx context.Context, result map[string]any) string {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("Failed to generate natural language summary: %v", err)
	}

	narrative, err := s.oracle.Complete(ctx, "", oracle.SummaryPrompt(string(resultJSON)))
	if err != nil {
		logger.Component("orchestrator").Warn().Err(err).Msg("summary generation failed")
		return fmt.Sprintf("Failed to generate natural language summary: %v", err)
	}
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return "Failed to generate natural language summary: oracle returned empty text"
	}
	return narrative
}

// stripFences removes a surrounding markdown code fence from oracle output.
// Models often wrap JSON in ```json ... ``` despite instructions not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:] // drop the language tag line (e.g. "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
