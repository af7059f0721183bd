package middleware

import (
	"net/http"
	"strings"

	"github.com/nkiryanov/doccollab/internal/devserver/render"
	"github.com/nkiryanov/doccollab/internal/devserver/userctx"
	"github.com/nkiryanov/doccollab/internal/models"
)

type authenticator interface {
	// Return user the bearer token belongs to
	Authenticate(token string) (models.User, error)
}

type Auth struct {
	auth authenticator
}

func NewAuth(a authenticator) *Auth {
	return &Auth{auth: a}
}

// Auth rejects requests without valid 'Authorization: Bearer' header
func (m *Auth) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := m.auth.Authenticate(token)
		if err != nil {
			render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(userctx.New(r.Context(), user)))
	})
}
