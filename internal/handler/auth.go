package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/pavelanni/qbank/internal/i18n"
)

const authRealm = `Basic realm="qbank admin"`

// requireAdmin checks HTTP basic credentials against the configured admin
// user and bcrypt hash. Without a hash every request is refused.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, password, ok := r.BasicAuth()
		if !ok || !h.checkAdmin(user, password) {
			w.Header().Set("WWW-Authenticate", authRealm)
			writeError(w, http.StatusUnauthorized, appI18n.T(r.Context(), "ErrUnauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) checkAdmin(user, password string) bool {
	if h.config.AdminPasswordHash == "" {
		slog.Warn("admin request refused, no admin password hash configured")
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.config.AdminUser)) == 1
	// Always run bcrypt so a wrong user name costs as much as a wrong password.
	passOK := bcrypt.CompareHashAndPassword([]byte(h.config.AdminPasswordHash), []byte(password)) == nil
	return userOK && passOK
}
