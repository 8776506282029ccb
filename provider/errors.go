package provider

import (
	"fmt"
	"net/http"

	"relaychat/model"
)

// notConfigured is returned before any network I/O when the adapter has no
// usable credential.
func notConfigured(providerID string) error {
	return &model.Error{Kind: model.KindNotConfigured, Provider: providerID}
}

func malformed(providerID, detail string) error {
	return &model.Error{Kind: model.KindMalformedResponse, Provider: providerID, Detail: detail}
}

// classifyStatus maps an HTTP status from a vendor API to a structured error.
// Unclassified statuses are returned as plain wrapped errors so the
// orchestrator reports them as GenerationFailed with the detail intact.
func classifyStatus(providerID string, status int, cause error) error {
	var kind model.ErrorKind
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = model.KindInvalidCredential
	case http.StatusTooManyRequests:
		kind = model.KindRateLimited
	case http.StatusNotFound:
		kind = model.KindModelNotFound
	case http.StatusServiceUnavailable, 529: // 529: Anthropic "overloaded"
		kind = model.KindUnavailable
	default:
		if cause == nil {
			return fmt.Errorf("%s: http %d %s", providerID, status, http.StatusText(status))
		}
		return fmt.Errorf("%s: http %d: %w", providerID, status, cause)
	}
	return &model.Error{Kind: kind, Provider: providerID, Detail: fmt.Sprintf("http %d", status), Err: cause}
}
