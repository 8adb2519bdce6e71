// Package entrypoint wires configuration into a ready-to-use client core.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/config"
	"github.com/bremen-jose-oliveira/mylibrary/internal/covers"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/metadata"
	"github.com/bremen-jose-oliveira/mylibrary/internal/scanner"
	"github.com/bremen-jose-oliveira/mylibrary/internal/scheduler"
	"github.com/bremen-jose-oliveira/mylibrary/internal/session"
	"github.com/bremen-jose-oliveira/mylibrary/internal/store"
	"github.com/bremen-jose-oliveira/mylibrary/internal/tokenstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// App is the assembled client: one gateway, one resolver and one instance of
// every store. UIs and the CLI drive it; nothing here is global.
type App struct {
	Config   *config.Config
	Log      logrus.FieldLogger
	Registry *prometheus.Registry

	Tokens   tokenstore.Store
	Client   *api.Client
	Resolver *session.Resolver
	Session  *session.Service

	Books         *store.BookStore
	Friends       *store.FriendStore
	Exchanges     *store.ExchangeStore
	Reviews       *store.ReviewStore
	Notifications *store.NotificationStore

	Catalogue *metadata.GoogleBooksClient
	Enricher  *metadata.Enricher
	Scheduler *scheduler.RefreshScheduler

	coversMu    sync.Mutex
	covers      *covers.Cache
	closeTokens func() error
}

// New opens the encrypted token database named in cfg and builds the App.
func New(cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	tokens, err := tokenstore.NewSQLite(tokenstore.Config{
		DatabasePath:  cfg.Session.DatabasePath,
		EncryptionKey: cfg.Session.EncryptionKey,
		Passphrase:    cfg.Session.Passphrase,
		KeyFilePath:   cfg.Session.KeyFilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	app := NewWithTokenStore(cfg, tokens, log)
	app.closeTokens = tokens.Close
	return app, nil
}

// NewWithTokenStore builds the App around an existing token store.
func NewWithTokenStore(cfg *config.Config, tokens tokenstore.Store, log logrus.FieldLogger) *App {
	log = logging.OrDiscard(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	client := api.New(cfg.API.BaseURL, tokens,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log),
		api.WithMetrics(api.NewMetrics(reg)),
	)

	catalogueOpts := []metadata.Option{metadata.WithLogger(log)}
	if cfg.Covers.GoogleBooksURL != "" {
		catalogueOpts = append(catalogueOpts, metadata.WithBaseURL(cfg.Covers.GoogleBooksURL))
	}
	if cfg.Covers.RatePerSecond > 0 {
		catalogueOpts = append(catalogueOpts, metadata.WithRateLimit(cfg.Covers.RatePerSecond))
	}
	catalogue := metadata.NewGoogleBooksClient(catalogueOpts...)

	openLibraryOpts := []metadata.Option{metadata.WithLogger(log)}
	if cfg.Covers.OpenLibraryURL != "" {
		openLibraryOpts = append(openLibraryOpts, metadata.WithBaseURL(cfg.Covers.OpenLibraryURL))
	}
	openLibrary := metadata.NewOpenLibraryClient(openLibraryOpts...)
	enricher := metadata.NewEnricher([]metadata.Provider{catalogue, openLibrary}, cfg.Covers.Concurrency, log)

	resolver := session.NewResolver(client, tokens, log)
	svc := session.NewService(client, tokens, resolver,
		session.WithGoogleClientID(cfg.OAuthClientID("web")),
		session.WithLogger(log),
	)

	app := &App{
		Config:        cfg,
		Log:           log,
		Registry:      reg,
		Tokens:        tokens,
		Client:        client,
		Resolver:      resolver,
		Session:       svc,
		Books:         store.NewBookStore(client, enricher, log),
		Friends:       store.NewFriendStore(client, log),
		Exchanges:     store.NewExchangeStore(client, log),
		Reviews:       store.NewReviewStore(client, log),
		Notifications: store.NewNotificationStore(client, log),
		Catalogue:     catalogue,
		Enricher:      enricher,
	}

	app.Scheduler = scheduler.NewRefreshScheduler(app.Notifications, app.Friends,
		scheduler.WithLogger(log),
		scheduler.WithAuthCheck(svc.Authenticated),
		scheduler.WithRegisterer(reg),
	)

	resolver.Subscribe(app.Exchanges.SetCurrentUser)
	svc.OnLogout(app.resetStores)
	client.OnSessionExpired(func() {
		log.Warn("session expired, login required")
		svc.Expire()
	})
	return app
}

func (a *App) resetStores() {
	a.Books.Reset()
	a.Friends.Reset()
	a.Exchanges.Reset()
	a.Reviews.Reset()
	a.Notifications.Reset()
}

// RefreshAll reloads every collection after a login or app start. It returns
// the resolved user, or nil when logged out.
func (a *App) RefreshAll(ctx context.Context) *entities.UserSummary {
	user := a.Resolver.RefreshCurrentUser(ctx)
	if user == nil {
		return nil
	}
	a.Books.Refresh(ctx)
	a.Friends.Refresh(ctx)
	a.Friends.RefreshPending(ctx)
	a.Exchanges.Refresh(ctx)
	a.Notifications.Refresh(ctx)
	return user
}

// ISBNFinder resolves scanned codes against the catalogue.
func (a *App) ISBNFinder() scanner.Finder {
	return scanner.FinderFunc(func(ctx context.Context, isbn string) (*entities.BookInput, error) {
		meta, err := a.Catalogue.SearchByISBN(ctx, isbn)
		if err != nil {
			return nil, err
		}
		draft := meta.Draft()
		return &draft, nil
	})
}

// CoverCache opens the local cover directory on first use.
func (a *App) CoverCache() (*covers.Cache, error) {
	a.coversMu.Lock()
	defer a.coversMu.Unlock()

	if a.covers != nil {
		return a.covers, nil
	}
	dir := a.Config.Covers.CacheDir
	if dir == "" {
		var err error
		if dir, err = covers.DefaultDir(); err != nil {
			return nil, fmt.Errorf("locate cover cache: %w", err)
		}
	}
	cache, err := covers.NewCache(dir, a.Log)
	if err != nil {
		return nil, err
	}
	a.covers = cache
	return cache, nil
}

func (a *App) Close() error {
	a.Scheduler.Stop()
	if a.closeTokens != nil {
		return a.closeTokens()
	}
	return nil
}

// Serve runs handler on addr until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.WithField("timeout", shutdownTimeout).Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
