package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-storefront/utils"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger tags every request with an id, puts a request scoped
// logger in the context and logs the outcome. Panics become a 500.
func RequestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLogger := logger.With().
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			ctx := reqLogger.WithContext(r.Context())
			// handlers further down may add fields, e.g. the user id
			reqLog := zerolog.Ctx(ctx)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					reqLog.Error().
						Str("panic", fmt.Sprint(p)).
						Bytes("stack", debug.Stack()).
						Msg("request panicked")
					if !rec.wroteHeader {
						utils.WriteError(rec, utils.NewUnknownError(fmt.Errorf("panic: %v", p), "Server error"))
					}
				}

				event := reqLog.Info()
				if rec.status >= http.StatusInternalServerError {
					event = reqLog.Error()
				} else if rec.status >= http.StatusBadRequest {
					event = reqLog.Warn()
				}
				event.Int("status", rec.status).
					Dur("duration", time.Since(start)).
					Msg("request completed")
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}
