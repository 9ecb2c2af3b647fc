package risk

import (
	"context"

	"github.com/pulseed/pulseed/core"
)

// Service resolves student messages to a risk Tier. Rules first, model
// second: a keyword match is authoritative and skips the model call
// entirely; otherwise the model's verdict is returned verbatim. The two
// signals are never blended. Classification is pure — escalation side
// effects live in the alert package.
type Service struct {
	cls classifier
}

func NewService(completer core.Completer, model string, logger core.Logger) *Service {
	return &Service{
		cls: classifier{completer: completer, model: model, logger: logger},
	}
}

// Classify produces exactly one Tier for msg. It never fails: any error on
// the model path resolves to TierLow.
func (svc *Service) Classify(ctx context.Context, msg string) Tier {
	if msg = core.CleanString(msg); msg == "" {
		return TierLow
	}
	if tier, ok := MatchKeywords(msg); ok {
		return tier
	}
	return svc.cls.classify(ctx, msg)
}
