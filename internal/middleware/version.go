package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/mod/semver"
)

// VersionHeader carries the API version a client was built against.
const VersionHeader = "Storefront-Version"

// Version rejects clients that expect a newer API than this server speaks.
// Only major.minor is compared; patch releases are always compatible. Requests
// without the header are served. The server version is echoed on every response.
func Version(serverVersion string, logger *slog.Logger) func(http.Handler) http.Handler {
	server := normalizeVersion(serverVersion)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(VersionHeader, strings.TrimPrefix(server, "v"))

			header := strings.TrimSpace(r.Header.Get(VersionHeader))
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			client := normalizeVersion(header)
			if !semver.IsValid(client) {
				writeError(w, http.StatusBadRequest, "version_invalid",
					"Storefront-Version must be a semantic version, got "+header)
				return
			}

			if !Compatible(server, client) {
				logger.Warn("client version unsupported",
					slog.String("client", client),
					slog.String("server", server))
				writeError(w, http.StatusBadRequest, "version_unsupported",
					"API version "+header+" is newer than the server's "+strings.TrimPrefix(server, "v"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Compatible reports whether a client at version client can talk to a server
// at version server: same major, and client minor not ahead of the server.
func Compatible(server, client string) bool {
	server, client = normalizeVersion(server), normalizeVersion(client)
	if !semver.IsValid(server) || !semver.IsValid(client) {
		return false
	}
	if semver.Major(server) != semver.Major(client) {
		return false
	}
	return semver.Compare(semver.MajorMinor(client), semver.MajorMinor(server)) <= 0
}

// normalizeVersion adds "v" prefix if needed for semver parsing.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}
