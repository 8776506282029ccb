package orchestrator

import (
	"slices"

	"relaychat/model"
)

// FallbackPolicy decides when a caller should retry a failed generation
// once on the fallback model.
type FallbackPolicy struct {
	FallbackModelID string
	Triggers        []model.ErrorKind
}

// DefaultFallbackTriggers are the failures where the selected model cannot
// serve the request at all. Rate limits and rejected credentials are left to
// the user.
var DefaultFallbackTriggers = []model.ErrorKind{
	model.KindModelNotFound,
	model.KindUnavailable,
	model.KindNotConfigured,
	model.KindProviderNotConfigured,
	model.KindProviderNotAvailable,
}

// DefaultFallbackPolicy returns a policy using DefaultFallbackTriggers.
func DefaultFallbackPolicy(fallbackModelID string) FallbackPolicy {
	return FallbackPolicy{
		FallbackModelID: fallbackModelID,
		Triggers:        slices.Clone(DefaultFallbackTriggers),
	}
}

// ShouldFallback reports whether err from currentModelID warrants one retry
// on the fallback model. It is always false when currentModelID already is
// the fallback model or no fallback is configured.
func (p FallbackPolicy) ShouldFallback(err error, currentModelID string) bool {
	if err == nil || p.FallbackModelID == "" || currentModelID == p.FallbackModelID {
		return false
	}
	kind := model.KindOf(err)
	if kind == "" {
		return false
	}
	return slices.Contains(p.Triggers, kind)
}
