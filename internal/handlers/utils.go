package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jason-s-yu/bingo/internal/auth"
	"github.com/jason-s-yu/bingo/internal/models"
)

// authCookieName is the cookie carrying the identity token.
const authCookieName = "auth_token"

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == cookieName {
			return value
		}
	}
	return ""
}

// resolveIdentity reads the token from the auth cookie or the "token" query
// parameter. No token means a guest; a bad token is an error.
func resolveIdentity(r *http.Request) (models.Identity, error) {
	token := extractCookieToken(r.Header.Get("Cookie"), authCookieName)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return models.Identity{}, nil
	}
	return auth.AuthenticateJWT(token)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
