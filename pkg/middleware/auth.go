package middleware

import (
	"context"
	"net/http"

	"postboard/pkg/logger"
	"postboard/pkg/sessions"
	"postboard/pkg/user"
)

//go:generate mockgen -source=auth.go -destination=auth_mock.go -package=middleware

type (
	ISessionManager interface {
		UserFromToken(string) (*user.User, error)
	}
	Auth struct {
		SessionManager ISessionManager
	}
)

func NewAuthMiddleware(sm ISessionManager) *Auth {
	return &Auth{
		SessionManager: sm,
	}
}

// Middleware puts the principal of a valid token into the request context.
// Requests without a valid token go on anonymously and the operations
// decide whether that is enough.
func (auth Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		userFromToken, err := auth.SessionManager.UserFromToken(authHeader)
		if err != nil {
			logger.Log(r.Context()).Warnf("auth: can't get user from token: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessions.SessionKey, userFromToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
