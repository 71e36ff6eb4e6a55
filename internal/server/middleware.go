package server

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/listenin/internal/api"
)

func setSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// clientKey is the first X-Forwarded-For entry, or "unknown".
func clientKey(r *http.Request) string {
	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" {
		return "unknown"
	}
	first := strings.TrimSpace(strings.Split(fwd, ",")[0])
	if first == "" {
		return "unknown"
	}
	return first
}

type endpoint struct {
	method  string
	limiter *Limiter // nil for endpoints without a ceiling
	noun    string   // what the limit counts, e.g. "summaries"
	handle  http.HandlerFunc
}

// wrap applies the boundary policy shared by every endpoint: hardening
// headers, allow-list CORS, preflight, method check and rate limiting.
func (s *Server) wrap(e endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		setSecurityHeaders(h)

		if origin := r.Header.Get("Origin"); origin != "" && s.originAllowed(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Methods", e.method+", OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != e.method {
			writeError(w, http.StatusMethodNotAllowed, api.ErrorResponse{Error: "Method not allowed"})
			return
		}

		if e.limiter != nil {
			if ok, retryAfter := e.limiter.Allow(clientKey(r)); !ok {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				log.Printf("Server: rate limit hit on %s for %s", r.URL.Path, clientKey(r))
				writeError(w, http.StatusTooManyRequests, limitMessage(e.noun, e.limiter))
				return
			}
		}

		e.handle(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, body api.ErrorResponse) {
	writeJSON(w, status, body)
}

func limitMessage(noun string, l *Limiter) api.ErrorResponse {
	limit, period := l.Limit()
	return api.ErrorResponse{
		Error:   fmt.Sprintf("Rate limit exceeded. Maximum %d %s per %s.", limit, noun, per(period)),
		Message: "Too many requests. Please try again later.",
	}
}

func per(d time.Duration) string {
	switch d {
	case time.Hour:
		return "hour"
	case time.Minute:
		return "minute"
	case time.Second:
		return "second"
	}
	return d.String()
}
