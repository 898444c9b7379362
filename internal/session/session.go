// Package session keeps per-browser state on the server: the signed-in user
// and the sale-invoice cart being built. A session is loaded once per request
// by Middleware and handed to handlers through the gin context.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"kasir/internal/cart"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CookieName is the cookie carrying the session id.
const CookieName = "kasir_session"

const contextKey = "kasir.session"

// ErrNotFound is returned by a Store when the id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Session, the state bound to one browser.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Cart      cart.Cart `json:"cart"`
	Flash     string    `json:"flash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Authenticated reports whether a user signed in with this session.
func (s *Session) Authenticated() bool {
	return s.UserID != ""
}

// PopFlash returns the pending one-shot message and clears it.
func (s *Session) PopFlash() string {
	msg := s.Flash
	s.Flash = ""
	return msg
}

// Store persists sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// New returns an empty session with a fresh id.
func New() *Session {
	return &Session{
		ID:        uuid.New().String(),
		Cart:      cart.Reset(),
		CreatedAt: time.Now().UTC(),
	}
}

// Middleware loads the session named by the cookie, or starts a new one, and
// stores it in the gin context.
func Middleware(store Store, ttl time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *Session
		if id, err := c.Cookie(CookieName); err == nil && id != "" {
			sess, err = store.Get(c.Request.Context(), id)
			if err != nil && !errors.Is(err, ErrNotFound) {
				log.Error().Err(err).Str("session", id).Msg("session load failed")
			}
		}
		if sess == nil {
			sess = New()
			SetCookie(c, sess.ID, ttl)
		}
		c.Set(contextKey, sess)
		c.Next()
	}
}

// SetCookie writes the session cookie.
func SetCookie(c *gin.Context, id string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, id, int(ttl.Seconds()), "/", "", false, true)
}

// ClearCookie expires the session cookie.
func ClearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}

// FromContext returns the session loaded by Middleware. Outside the
// middleware a new unsaved session is returned.
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	s := New()
	c.Set(contextKey, s)
	return s
}
