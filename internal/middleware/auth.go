package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cablesizer/internal/auth"
)

// TokenVersionChecker reports whether a token version is still current for a project.
type TokenVersionChecker interface {
	CheckTokenVersion(ctx context.Context, projectID string, version int) (bool, error)
}

type AuthMiddleware struct {
	jwt      *auth.JWTManager
	projects TokenVersionChecker
	logr     *zap.Logger
}

type contextKey string

const ContextProjectIDKey contextKey = "projectID"

// NewAuthMiddleware creates a reusable edit-token middleware instance
func NewAuthMiddleware(jwt *auth.JWTManager, projects TokenVersionChecker, logr *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:      jwt,
		projects: projects,
		logr:     logr,
	}
}

// ProjectAuth requires a valid edit token for the project named by the {id}
// route parameter and attaches the project id to the request context.
func (m *AuthMiddleware) ProjectAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			deny(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			deny(w, http.StatusUnauthorized, "invalid token format")
			return
		}

		claims, err := m.jwt.VerifyEditToken(tokenString)
		if err != nil {
			m.logr.Warn("token parse error", zap.Error(err))
			deny(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		projectID := chi.URLParam(r, "id")
		if !strings.EqualFold(claims.ProjectID, projectID) {
			m.logr.Warn("token for another project",
				zap.String("project_id", projectID),
				zap.String("token_project", claims.ProjectID))
			deny(w, http.StatusForbidden, "token does not grant access to this project")
			return
		}

		// Validate token version from DB
		valid, err := m.projects.CheckTokenVersion(r.Context(), projectID, claims.Version)
		if err != nil {
			m.logr.Error("failed checking token version", zap.Error(err), zap.String("project_id", projectID))
			deny(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !valid {
			m.logr.Warn("token version invalid", zap.String("project_id", projectID))
			deny(w, http.StatusUnauthorized, "token revoked or invalid")
			return
		}

		ctx := context.WithValue(r.Context(), ContextProjectIDKey, projectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}
