package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/wordshelf/internal/errs"
	"github.com/and161185/wordshelf/internal/service"
)

// detail is the structured form of an error body.
type detail struct {
	ErrorMessage string `json:"error_message"`
	Code         string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status and a {"detail": ...} body. Internal failures are
// logged and answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status int
		body   any
	)
	switch {
	case errors.Is(err, errs.ErrSubscriptionRequired):
		status = http.StatusForbidden
		body = detail{ErrorMessage: service.UpgradeMessage, Code: errs.CodeSubscriptionRequired}
	case errors.Is(err, errs.ErrUnauthenticated):
		status, body = http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, errs.ErrRateLimited):
		status, body = http.StatusTooManyRequests, "Too many attempts, try again later"
	case errors.Is(err, errs.ErrNotFound):
		status, body = http.StatusNotFound, "Not found"
	case errors.Is(err, errs.ErrAlreadyExists):
		status, body = http.StatusConflict, "Already exists"
	case errors.Is(err, errs.ErrInvalidArgument):
		status, body = http.StatusBadRequest, err.Error()
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		status, body = http.StatusInternalServerError, "Internal server error"
	}
	writeJSON(w, status, map[string]any{"detail": body})
}
