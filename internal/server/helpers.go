package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mediavault-app/mediavault/internal/models"
)

const sessionCookie = "vault_session"

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, &models.APIError{
		Code:       code,
		Message:    message,
		StatusCode: status,
	})
}

// writeAuthError writes the single client-visible authorization
// failure. Expired, unknown, and owner-mismatched signatures all
// produce this exact response; the distinction lives only in logs.
func writeAuthError(w http.ResponseWriter) {
	setNoStore(w)
	writeError(w, http.StatusForbidden, models.ErrCodeCapability, "access denied")
}

// setNoStore marks a response as holding decrypted or otherwise
// sensitive content. Required on every such response, including
// failures, so no intermediary or browser cache retains it.
func setNoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// setPublicCache marks a non-encrypted resource response as cacheable.
func setPublicCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "public, max-age=86400")
}

// sessionToken extracts the caller's session token from the cookie or
// the Authorization header. Capability signatures ride in query
// parameters; session tokens never do.
func sessionToken(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}

	return ""
}

// requireSession resolves the caller's owner identity or writes 401.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, models.ErrCodeAuth, "session required")
		return "", "", false
	}

	ownerID, ok := s.sessions.Lookup(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, models.ErrCodeAuth, "session required")
		return "", "", false
	}

	return token, ownerID, true
}
