package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	chatservice "github.com/iyunix/go-pdfchat/internal/services/chat"
)

// TokenVerifier turns a bearer token into a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// NewBearerAuthMiddleware rejects requests without a valid
// "Authorization: Bearer <token>" header before any handler runs.
func NewBearerAuthMiddleware(verifier TokenVerifier, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Debug("[AuthMiddleware] missing bearer token", "path", r.URL.Path)
				writeUnauthorized(w)
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("[AuthMiddleware] invalid token", "path", r.URL.Path, "error", err)
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "missing or invalid credentials",
		"kind":  string(chatservice.KindUnauthorized),
	})
}
