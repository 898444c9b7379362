package main

import (
	"context"
	"crypto/tls"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"kasir/internal/config"
	"kasir/internal/database"
	"kasir/internal/handlers"
	"kasir/internal/logger"
	"kasir/internal/metrics"
	"kasir/internal/services"
	"kasir/internal/session"
	"kasir/web"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service: "kasir",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Pretty:  !cfg.Production(),
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	if cfg.SeedDemo {
		if err := db.Seed(ctx); err != nil {
			return err
		}
	}

	sessions, closeSessions, err := newSessionStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	m := metrics.New()
	images, err := services.NewDiskImageStore(cfg.UploadDir)
	if err != nil {
		return err
	}
	mailer := services.NewEmailService(services.MailConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.MailFrom,
		To:   cfg.ReceiptTo,
	}, log)
	invoices := services.NewInvoiceService(db, mailer, m, log)

	h := handlers.NewHandler(handlers.Options{
		DB:         db,
		Sessions:   sessions,
		SessionTTL: cfg.SessionTTL,
		Catalog:    services.NewCatalogService(db, images, log),
		Invoices:   invoices,
		Cart:       services.NewCartService(db, sessions, log),
		Security:   services.NewSecurityLogger(log),
		Log:        log,
	})

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.Use(m.GinMiddleware())
	if err := r.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		return err
	}

	renderer, err := handlers.LoadTemplates(web.FS)
	if err != nil {
		return err
	}
	r.HTMLRender = renderer

	staticFS, err := staticFiles()
	if err != nil {
		return err
	}
	r.StaticFS("/static", staticFS)
	r.Static("/uploads", cfg.UploadDir)
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, "/dashboard")
	})

	app := r.Group("/")
	app.Use(session.Middleware(sessions, cfg.SessionTTL, log))
	h.Routes(app)
	r.NoRoute(session.Middleware(sessions, cfg.SessionTTL, log), h.NotFound)

	servers, err := newServers(cfg, r, log)
	if err != nil {
		return err
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			log.Info().Str("addr", srv.Addr).Bool("tls", srv.TLSConfig != nil).Msg("listening")
			var err error
			if srv.TLSConfig != nil {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("listener failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Str("addr", srv.Addr).Msg("graceful shutdown failed")
		}
	}
	invoices.Wait()
	return nil
}

// newSessionStore uses Redis when REDIS_ADDR is set and memory otherwise.
func newSessionStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("sessions kept in memory")
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("sessions kept in redis")
	return session.NewRedisStore(client, cfg.SessionTTL), func() { client.Close() }, nil
}

// newServers returns the plain HTTP server, or with TLS_SELF_SIGNED an HTTPS
// server plus an HTTP listener that redirects to it.
func newServers(cfg config.Config, h http.Handler, log zerolog.Logger) ([]*http.Server, error) {
	plain := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if !cfg.TLSSelfSigned {
		return []*http.Server{plain}, nil
	}

	cert, err := generateSelfSignedCert()
	if err != nil {
		return nil, err
	}
	log.Warn().Msg("serving HTTPS with a self-signed certificate")

	secure := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.TLSPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		},
	}
	plain.Handler = httpsRedirect(cfg.TLSPort)
	return []*http.Server{secure, plain}, nil
}

func staticFiles() (http.FileSystem, error) {
	sub, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, err
	}
	return http.FS(sub), nil
}
