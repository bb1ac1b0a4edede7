package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CodeSubscriptionRequired is the structured code the API attaches to plan-gated rejections.
const CodeSubscriptionRequired = "subscription_required"

// upgradePhrases are matched only when the server sends no structured code.
var upgradePhrases = []string{
	"upgrade",
	"subscription",
	"pro plan",
	"limit reached",
}

// RemoteError is a non-2xx answer from the API, a transport failure when Status is 0, or a
// 2xx answer whose body could not be decoded.
type RemoteError struct {
	Op      string // e.g. "fetch words"
	Status  int
	Code    string
	Message string
	Err     error // transport error, if any
}

// Error implements error.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Status)
}

// Unwrap maps the failure onto the taxonomy so errors.Is works against the sentinels.
func (e *RemoteError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	switch {
	case e.Status < http.StatusBadRequest || e.Status >= http.StatusInternalServerError:
		// transport failure, 5xx, or a 2xx whose body could not be decoded
		out = append(out, ErrTransient)
	case e.Status == http.StatusUnauthorized:
		out = append(out, ErrUnauthenticated)
	case e.SubscriptionRequired():
		out = append(out, ErrSubscriptionRequired, ErrRemoteValidation)
	case e.Status == http.StatusNotFound:
		out = append(out, ErrNotFound, ErrRemoteValidation)
	case e.Status == http.StatusTooManyRequests:
		out = append(out, ErrRateLimited)
	default:
		out = append(out, ErrRemoteValidation)
	}
	return out
}

// SubscriptionRequired prefers the structured code; phrase matching is the legacy fallback.
func (e *RemoteError) SubscriptionRequired() bool {
	if e.Code != "" {
		return e.Code == CodeSubscriptionRequired
	}
	if e.Status < 400 || e.Status >= 500 || e.Status == http.StatusUnauthorized {
		return false
	}
	msg := strings.ToLower(e.Message)
	for _, p := range upgradePhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsSubscriptionRequired reports whether err is a plan-gated rejection.
func IsSubscriptionRequired(err error) bool {
	return errors.Is(err, ErrSubscriptionRequired)
}

// UserMessage returns the text to show for err, or "" when it must be suppressed
// because the upgrade notification already covers it.
func UserMessage(err error) string {
	if err == nil || IsSubscriptionRequired(err) {
		return ""
	}
	return err.Error()
}
