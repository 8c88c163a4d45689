package middlew

import (
	"cbr-rates/pkg/response"
	"log/slog"
	"net"
	"net/http"

	"github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
)

// RateLimit ограничивает частоту запросов с одного IP. Ставится после middleware.RealIP,
// заголовки X-RateLimit-* выставляет драйвер limiter.
func RateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	mw := limiterstdlib.NewMiddleware(l,
		limiterstdlib.WithKeyGetter(clientIP),
		limiterstdlib.WithLimitReachedHandler(onLimitReached),
		limiterstdlib.WithErrorHandler(onLimitError),
	)
	return mw.Handler
}

func onLimitReached(w http.ResponseWriter, r *http.Request) {
	log := GetLogger(r.Context())
	log.Warn("rate limit exceeded",
		slog.String("ip", clientIP(r)),
		slog.String("limit", w.Header().Get("X-RateLimit-Limit")))
	response.WriteJSONError(w, log, http.StatusTooManyRequests, "rate_limited", "Too many requests, try again later")
}

func onLimitError(w http.ResponseWriter, r *http.Request, err error) {
	log := GetLogger(r.Context())
	log.Error("failed to get rate limit context", slog.String("ip", clientIP(r)), slog.String("error", err.Error()))
	response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "Rate limit check failed")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
