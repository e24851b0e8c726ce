package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"mediagate/core/apperr"
	"mediagate/logger"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", logger.ErrorField(err))
	}
}

// writeError renders err as {"status":"error","message":...}. Unclassified
// errors are logged and reported as a generic internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := map[string]interface{}{
		"status":  "error",
		"message": apperr.PublicMessage(err),
	}

	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind == apperr.KindRateLimited {
		body["rate_limit_exceeded"] = true
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterHeader(ae)))
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.ErrorField(err))
	}
	writeJSON(w, status, body)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"status": "error", "message": msg})
}

// retryAfterHeader rounds up so a client honouring it is never early.
func retryAfterHeader(e *apperr.Error) int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
