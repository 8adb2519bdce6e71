package entrypoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/config"
	"github.com/bremen-jose-oliveira/mylibrary/internal/covers"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/fakeapi"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/scanner"
	"github.com/bremen-jose-oliveira/mylibrary/internal/session"
	"github.com/bremen-jose-oliveira/mylibrary/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const password = "secret1"

// catalogueServer answers Google Books volume searches. Only the Dune ISBN is
// known; everything else is an empty result.
func catalogueServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/volumes" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if strings.Contains(r.URL.Query().Get("q"), "9780441172719") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"totalItems": 1,
				"items": []map[string]any{{
					"id": "dune",
					"volumeInfo": map[string]any{
						"title":         "Dune",
						"authors":       []string{"Frank Herbert"},
						"publishedDate": "1990-09-01",
						"industryIdentifiers": []map[string]string{
							{"type": "ISBN_13", "identifier": "9780441172719"},
						},
						"imageLinks": map[string]string{"thumbnail": "http://books.example.com/dune.jpg"},
					},
				}},
			})
			return
		}
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	backend   *httptest.Server
	catalogue *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := httptest.NewServer(fakeapi.New(fakeapi.Config{Secret: "test-secret"}).Handler())
	t.Cleanup(backend.Close)
	return &harness{backend: backend, catalogue: catalogueServer(t)}
}

func (h *harness) app(t *testing.T, token string) *App {
	t.Helper()
	cfg := &config.Config{
		API: config.API{BaseURL: h.backend.URL, Timeout: 5 * time.Second},
		Covers: config.Covers{
			GoogleBooksURL: h.catalogue.URL,
			OpenLibraryURL: h.catalogue.URL,
			Concurrency:    2,
		},
		OAuth: config.OAuth{GoogleWebClientID: "web-client"},
	}
	app := NewWithTokenStore(cfg, tokenstore.NewMemory(token), nil)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func (h *harness) register(t *testing.T, username string) *App {
	t.Helper()
	app := h.app(t, "")
	email := username + "@example.com"
	user, err := app.Session.Register(context.Background(), session.RegistrationInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, email, user.Email)
	return app
}

func TestApp_EndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice")
	bob := h.register(t, "bob")

	// Books
	book, err := alice.Books.Create(ctx, entities.BookInput{
		Title:  "Dune",
		Author: "Frank Herbert",
		Cover:  "https://books.example.com/dune.jpg",
	})
	require.NoError(t, err)
	require.Equal(t, 1, alice.Books.Len())
	assert.Equal(t, entities.ReadingStatusNotRead, alice.Books.Items()[0].ReadingStatus)

	require.NoError(t, alice.Books.UpdateReadingStatus(ctx, book.ID, entities.ReadingStatusReading))
	got, ok := alice.Books.Find(book.ID)
	require.True(t, ok)
	assert.Equal(t, entities.ReadingStatusReading, got.ReadingStatus)

	// Friends
	require.NoError(t, bob.Friends.SendRequest(ctx, "alice@example.com"))
	require.Len(t, bob.Friends.Items(), 1)
	assert.Equal(t, entities.FriendshipStatusPending, bob.Friends.Items()[0].FriendshipStatus)

	alice.Friends.RefreshPending(ctx)
	require.Len(t, alice.Friends.Pending(), 1)
	require.NoError(t, alice.Friends.Accept(ctx, alice.Friends.Pending()[0].ID))
	assert.Empty(t, alice.Friends.Pending())
	require.Len(t, alice.Friends.Items(), 1)
	assert.Equal(t, "bob@example.com", alice.Friends.Items()[0].FriendEmail)

	shelf, err := bob.Books.ListByOwner(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, shelf, 1)

	// Exchanges
	exchange, err := bob.Exchanges.Request(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ExchangeStatusRequested, exchange.Status)
	require.Len(t, bob.Exchanges.Outgoing(), 1)
	assert.False(t, bob.Exchanges.CanAct(exchange.ID))

	alice.Exchanges.Refresh(ctx)
	require.Len(t, alice.Exchanges.Incoming(), 1)
	assert.True(t, alice.Exchanges.CanAct(exchange.ID))
	require.NoError(t, alice.Exchanges.Accept(ctx, exchange.ID))

	_, err = bob.Exchanges.Request(ctx, book.ID)
	require.ErrorIs(t, err, api.ErrRequestFailed)

	require.NoError(t, bob.Exchanges.MarkReturned(ctx, exchange.ID))
	returned, ok := bob.Exchanges.Find(exchange.ID)
	require.True(t, ok)
	assert.Equal(t, entities.ExchangeStatusReturned, returned.Status)

	// Reviews
	_, err = bob.Reviews.Create(ctx, entities.ReviewInput{BookID: book.ID, Rating: 4, Comment: "Spice must flow"})
	require.NoError(t, err)
	require.Equal(t, 1, bob.Reviews.Len())
	assert.Equal(t, book.ID, bob.Reviews.BookID())
	assert.InDelta(t, 4.0, bob.Reviews.AverageRating(), 0.001)

	// Notifications: friend request, exchange requested, exchange returned, new review.
	result := alice.Scheduler.RunNow(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, 4, result.Unread)
	assert.Zero(t, result.PendingRequests)

	require.NoError(t, alice.Notifications.MarkAllRead(ctx))
	assert.Zero(t, alice.Notifications.UnreadCount())
	alice.Notifications.Refresh(ctx)
	assert.Zero(t, alice.Notifications.UnreadCount())
	assert.Equal(t, 4, alice.Notifications.Len())
}

func TestApp_RefreshAll(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice")
	_, err := alice.Books.Create(ctx, entities.BookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	token, err := alice.Tokens.GetToken(ctx)
	require.NoError(t, err)

	// A fresh process with the persisted token picks the session back up.
	restarted := h.app(t, token)
	user := restarted.RefreshAll(ctx)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, 1, restarted.Books.Len())
	assert.True(t, restarted.Session.Authenticated(ctx))
}

func TestApp_RefreshAllLoggedOut(t *testing.T) {
	h := newHarness(t)
	app := h.app(t, "")

	assert.Nil(t, app.RefreshAll(context.Background()))
	assert.Zero(t, app.Books.Len())
}

func TestApp_UnauthorizedClearsSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice")
	_, err := alice.Books.Create(ctx, entities.BookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	require.NotNil(t, alice.Resolver.Current())

	require.NoError(t, alice.Tokens.StoreToken(ctx, "not-a-valid-token"))
	alice.Books.Refresh(ctx)

	token, err := alice.Tokens.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Nil(t, alice.Resolver.Current())
	assert.Zero(t, alice.Books.Len())
	assert.False(t, alice.Session.Authenticated(ctx))

	result := alice.Scheduler.RunNow(ctx)
	assert.True(t, result.Skipped)
}

func TestApp_LogoutResetsStores(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice")
	_, err := alice.Books.Create(ctx, entities.BookInput{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	require.NoError(t, alice.Session.Logout(ctx))
	assert.Zero(t, alice.Books.Len())
	assert.Nil(t, alice.Resolver.Current())

	user, err := alice.Session.Login(ctx, "alice@example.com", password)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestApp_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.register(t, "alice")

	require.NoError(t, alice.Session.DeleteAccount(ctx))
	assert.False(t, alice.Session.Authenticated(ctx))

	_, err := alice.Session.Login(ctx, "alice@example.com", password)
	require.ErrorIs(t, err, api.ErrRequestFailed)
}

func TestApp_ISBNFinder(t *testing.T) {
	h := newHarness(t)
	app := h.app(t, "")
	ctx := context.Background()

	scan := scanner.NewSession()
	require.True(t, scan.Deliver(scanner.Scan{Code: "0441172717", Format: "ean13"}))

	draft, err := scanner.Lookup(ctx, scan, app.ISBNFinder())
	require.NoError(t, err)
	assert.Equal(t, "Dune", draft.Title)
	assert.Equal(t, "Frank Herbert", draft.Author)
	assert.Equal(t, "9780441172719", draft.ISBN)
	assert.Equal(t, "https://books.example.com/dune.jpg", draft.Cover)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), logging.Discard())
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestApp_CoverCacheConcurrentFirstUse(t *testing.T) {
	h := newHarness(t)
	app := h.app(t, "")
	app.Config.Covers.CacheDir = t.TempDir()

	const callers = 8
	caches := make([]*covers.Cache, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cache, err := app.CoverCache()
			assert.NoError(t, err)
			caches[i] = cache
		}(i)
	}
	wg.Wait()

	require.NotNil(t, caches[0])
	for i := 1; i < callers; i++ {
		assert.Same(t, caches[0], caches[i], "every caller shares one cache")
	}
}
