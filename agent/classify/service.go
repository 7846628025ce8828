package classify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/harborins/concierge/agent/contract"
)

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service layers the model classifier over the keyword fallback.
// Classification never fails: any primary error, including a missing
// primary, degrades to the deterministic rules.
type Service struct {
	primary  contractx.Classifier
	fallback KeywordClassifier
	logger   zerolog.Logger
}

var _ contractx.Classifier = (*Service)(nil)

// NewService builds the layered classifier. primary may be nil; the
// service then runs keyword-only.
func NewService(primary contractx.Classifier, opts ...ServiceOption) *Service {
	s := &Service{
		primary: primary,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Classify returns the primary classification when it succeeds, the
// keyword classification otherwise. The returned error is always nil.
func (s *Service) Classify(ctx context.Context, text string) (contractx.Intent, error) {
	if s.primary != nil {
		intent, err := s.primary.Classify(ctx, text)
		if err == nil {
			return intent, nil
		}
		s.logger.Warn().Err(err).Msg("intent classification degraded to keyword rules")
	}
	return s.fallback.Classify(ctx, text)
}
