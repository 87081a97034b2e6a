// internal/pipeline/errors.go
package pipeline

import (
	"errors"
	"strings"

	"github.com/mwiater/adjudicator/internal/providers"
)

// QuotaMessage is shown to users when a provider refuses a run for quota reasons.
const QuotaMessage = "I'm currently using free-tier API access while testing. " +
	"Please wait a minute and try again. " +
	"Rate limits will be increased once cost controls are in place."

var quotaMarkers = []string{"429", "Resource has been exhausted", "RESOURCE_EXHAUSTED"}

// IsRateLimited reports whether err was caused by provider quota exhaustion.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var te *providers.TransportError
	if errors.As(err, &te) && te.RateLimited() {
		return true
	}
	msg := err.Error()
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// UserMessage is the text shown to a user for a failed run.
func UserMessage(err error) string {
	if IsRateLimited(err) {
		return QuotaMessage
	}
	return err.Error()
}
