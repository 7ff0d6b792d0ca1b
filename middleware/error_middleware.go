package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apierrors "wanderwise/utils/errors"
)

// RecoverMiddleware turns a panic into a 500 response and logs it.
func RecoverMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					LoggerFrom(r.Context()).Error("panic recovered", zap.Any("panic", rec), zap.Stack("stack"))
					WriteError(w, r, apierrors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as a JSON APIError. Errors that are not APIErrors
// become 500s; server errors are logged with their details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierrors.Wrap(err, "UNKNOWN_ERROR", "Unexpected error", apierrors.ErrInternal.Status)
	}
	if apiErr.Status >= http.StatusInternalServerError {
		LoggerFrom(r.Context()).Error("server error",
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
			zap.String("details", apiErr.Details),
		)
	}

	// Details carry internal causes and stay out of the response body.
	body := *apiErr
	body.Details = ""
	WriteJSON(w, apiErr.Status, body)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
