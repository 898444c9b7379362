package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kasir/internal/cart"
	"kasir/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sampleSession() *Session {
	s := New()
	s.UserID = "410544b2-4001-4271-9855-fec4b6a6442a"
	s.Cart = cart.Add(s.Cart, models.Product{ID: 7, Name: "Teh", Price: 550000, Quantity: 3})
	return s
}

// setupTestRedis creates a miniredis server and returns a RedisStore using it
func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, 30*time.Minute), mr
}

func TestRedisStore_SaveGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	s := sampleSession()

	require.NoError(t, store.Save(ctx, s))
	assert.True(t, mr.Exists(key(s.ID)))
	assert.Equal(t, 30*time.Minute, mr.TTL(key(s.ID)))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.UserID, got.UserID)
	require.Len(t, got.Cart, 1)
	assert.Equal(t, int64(7), got.Cart[0].ID)
	assert.Equal(t, int64(550000), got.Cart[0].Product.Price)
}

func TestRedisStore_Miss(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Expired(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	s := sampleSession()
	require.NoError(t, store.Save(ctx, s))

	mr.FastForward(31 * time.Minute)

	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_InvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(key("bad"), "{not json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	s := sampleSession()
	require.NoError(t, store.Save(ctx, s))

	require.NoError(t, store.Delete(ctx, s.ID))
	assert.False(t, mr.Exists(key(s.ID)))
}

func TestMemoryStore_RoundTripIsolated(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()
	s := sampleSession()
	require.NoError(t, store.Save(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	got.Cart = cart.Increment(got.Cart, 7)

	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Cart[0].Quantity, "unsaved changes must not leak")
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	s := sampleSession()
	require.NoError(t, store.Save(ctx, s))

	now = now.Add(2 * time.Minute)

	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, New()))
	assert.Equal(t, 1, store.Len(), "expired session swept on save")
}

func TestMiddleware_NewSessionSetsCookie(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	r := gin.New()
	r.Use(Middleware(store, time.Hour, zerolog.Nop()))
	var seen *Session
	r.GET("/", func(c *gin.Context) {
		seen = FromContext(c)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, seen.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestMiddleware_LoadsExistingSession(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	s := sampleSession()
	require.NoError(t, store.Save(context.Background(), s))

	r := gin.New()
	r.Use(Middleware(store, time.Hour, zerolog.Nop()))
	var seen *Session
	r.GET("/", func(c *gin.Context) {
		seen = FromContext(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: s.ID})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.NotNil(t, seen)
	assert.Equal(t, s.ID, seen.ID)
	assert.True(t, seen.Authenticated())
	assert.Empty(t, w.Result().Cookies())
}

func TestPopFlash(t *testing.T) {
	s := New()
	s.Flash = "Produk dihapus."
	assert.Equal(t, "Produk dihapus.", s.PopFlash())
	assert.Empty(t, s.PopFlash())
}
