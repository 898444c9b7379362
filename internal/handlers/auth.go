package handlers

import (
	"errors"
	"net/http"

	"kasir/internal/database"
	"kasir/internal/models"
	"kasir/internal/services"
	"kasir/internal/session"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware sends anonymous sessions to /login and loads the store of
// the signed-in user.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := session.FromContext(c)
		if !sess.Authenticated() {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}

		store, err := h.db.GetStoreByUserID(c.Request.Context(), sess.UserID)
		if errors.Is(err, models.ErrNotFound) {
			h.security.LogSecurityEvent(services.EventForbidden, "no store for user "+sess.UserID, c.ClientIP())
			c.HTML(http.StatusForbidden, "error.html", h.page(c, "Akses Ditolak", gin.H{
				"message": "Akun ini belum memiliki toko.",
			}))
			c.Abort()
			return
		}
		if err != nil {
			h.serverError(c, err, "failed to load store")
			c.Abort()
			return
		}

		c.Set(storeKey, *store)
		c.Next()
	}
}

// LoginPage, renders the sign-in form.
func (h *Handler) LoginPage(c *gin.Context) {
	if session.FromContext(c).Authenticated() {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	c.HTML(http.StatusOK, "login.html", h.page(c, "Masuk", gin.H{
		"form": models.LoginForm{},
	}))
}

// HandleLogin checks the credentials and binds the user to a fresh session.
func (h *Handler) HandleLogin(c *gin.Context) {
	var form models.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusUnprocessableEntity, "login.html", h.page(c, "Masuk", gin.H{
			"form":  form,
			"state": formState(err, "Periksa kembali email dan kata sandi."),
		}))
		return
	}

	user, err := h.db.GetUserByEmail(c.Request.Context(), form.Email)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		h.serverError(c, err, "failed to load user")
		return
	}
	if err != nil || !database.CheckPasswordHash(form.Password, user.PasswordHash) {
		h.security.LogSecurityEvent(services.EventLoginFailed, "invalid credentials for "+form.Email, c.ClientIP())
		c.HTML(http.StatusUnauthorized, "login.html", h.page(c, "Masuk", gin.H{
			"form":  models.LoginForm{Email: form.Email},
			"state": models.FormState{Message: "Email atau kata sandi salah."},
		}))
		return
	}

	// a new id on sign-in so a pre-login cookie cannot be reused
	old := session.FromContext(c)
	if err := h.sessions.Delete(c.Request.Context(), old.ID); err != nil {
		h.log.Warn().Err(err).Msg("failed to drop pre-login session")
	}
	sess := session.New()
	sess.UserID = user.ID
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		h.serverError(c, err, "failed to save session")
		return
	}
	session.SetCookie(c, sess.ID, h.sessionTTL)

	h.security.LogSecurityEvent(services.EventLoginSuccess, "user "+user.Email+" signed in", c.ClientIP())
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout drops the session and its cart.
func (h *Handler) Logout(c *gin.Context) {
	sess := session.FromContext(c)
	if err := h.sessions.Delete(c.Request.Context(), sess.ID); err != nil {
		h.log.Warn().Err(err).Msg("failed to delete session")
	}
	session.ClearCookie(c)
	if sess.Authenticated() {
		h.security.LogSecurityEvent(services.EventLogout, "user "+sess.UserID+" signed out", c.ClientIP())
	}
	c.Redirect(http.StatusSeeOther, "/login")
}
