package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dunglas/httpsfv"

	"storefront/internal/session"
)

// SessionHeader carries the shopper session as an RFC 8941 dictionary:
// id="3f1c...".
const SessionHeader = "Storefront-Session"

type contextKey string

const sessionContextKey contextKey = "storefront-session"

// SessionResolver finds or starts a session. *session.Registry implements it.
type SessionResolver interface {
	Resolve(ctx context.Context, id string) (*session.Session, bool, error)
}

// Session attaches the shopper session to the request context. A request
// without a session, or with an expired one, gets a new session; the id is
// always echoed in the response header.
func Session(resolver SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSessionExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			var id string
			if header := r.Header.Get(SessionHeader); header != "" {
				parsed, err := ParseSessionHeader(header)
				if err != nil {
					logger.Warn("invalid session header",
						slog.String("header", header),
						slog.String("error", err.Error()))
					writeError(w, http.StatusBadRequest, "session_invalid",
						"Invalid Storefront-Session header: "+err.Error())
					return
				}
				id = parsed
			}

			s, created, err := resolver.Resolve(r.Context(), id)
			if err != nil {
				logger.Error("session start failed", slog.String("error", err.Error()))
				writeError(w, http.StatusBadGateway, "session_unavailable",
					"Could not start a shopping session")
				return
			}
			if created && id != "" {
				logger.Info("session replaced", slog.String("stale_id", id), slog.String("session_id", s.ID))
			}

			header, err := FormatSessionHeader(s.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred")
				return
			}
			w.Header().Set(SessionHeader, header)

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// ParseSessionHeader extracts the session id from the Storefront-Session header.
// Parameters on the id member are ignored.
func ParseSessionHeader(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("empty session header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return "", fmt.Errorf("invalid session header: %w", err)
	}

	member, ok := dict.Get("id")
	if !ok {
		return "", errors.New("id key not found in session header")
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", errors.New("id value must be an item")
	}

	id, ok := item.Value.(string)
	if !ok || id == "" {
		return "", errors.New("id value must be a non-empty string")
	}

	return id, nil
}

// FormatSessionHeader serializes a session id as a Storefront-Session value.
func FormatSessionHeader(id string) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("id", httpsfv.NewItem(id))
	return httpsfv.Marshal(dict)
}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFrom returns the session attached by the Session middleware, or nil.
func SessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionContextKey).(*session.Session)
	return s
}

// isSessionExempt returns true for paths served without a shopper session.
// MCP tools carry the session id in their input instead.
func isSessionExempt(path string) bool {
	switch {
	case path == "/health" || path == "/healthz":
		return true
	case path == "/mcp" || strings.HasPrefix(path, "/mcp/"):
		return true
	default:
		return false
	}
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	resp.Error.Code = code
	resp.Error.Message = message

	json.NewEncoder(w).Encode(resp)
}
