package ai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bryanwahyu/tumortrack/internal/domain/ai"
	"github.com/bryanwahyu/tumortrack/internal/domain/analyst"
)

// Service writes plain-language narratives onto stored analyses.
type Service struct {
	narrator ai.Narrator
	analyses analyst.Repository
}

func NewService(narrator ai.Narrator, analyses analyst.Repository) *Service {
	return &Service{narrator: narrator, analyses: analyses}
}

// Narrate summarises the stored report of an analysis and saves the text
// onto it. It returns ai.ErrDisabled when no narrator is configured.
func (s *Service) Narrate(ctx context.Context, tenant string, id analyst.AnalysisID) (*analyst.Analysis, error) {
	if s == nil || s.narrator == nil {
		return nil, ai.ErrDisabled
	}
	a, err := s.analyses.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if a.Narrative != "" {
		return a, nil
	}

	text, err := s.narrator.Narrate(ctx, a.Report)
	if err != nil {
		return nil, fmt.Errorf("ai: narrate %s: %w", id, err)
	}
	if err := s.analyses.SetNarrative(ctx, tenant, id, text); err != nil {
		return nil, fmt.Errorf("ai: save narrative: %w", err)
	}
	slog.Info("ai: narrative stored", "tenant", tenant, "analysis", id, "chars", len(text))
	a.Narrative = text
	return a, nil
}
