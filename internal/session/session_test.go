package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/tokenstore"
	"github.com/bremen-jose-oliveira/mylibrary/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return token
}

// backend is a minimal server for the auth and user endpoints.
type backend struct {
	t     *testing.T
	mu    sync.Mutex
	users map[string]entities.UserSummary
	hits  map[string]int
}

func newBackend(t *testing.T, users ...entities.UserSummary) (*backend, *httptest.Server) {
	b := &backend{t: t, users: map[string]entities.UserSummary{}, hits: map[string]int{}}
	for _, u := range users {
		b.users[u.Email] = u
	}
	server := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(server.Close)
	return b, server
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hits[r.Method+" "+r.URL.Path]++

	writeJSON := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
		var body LoginInput
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := b.users[body.Email]; !ok || body.Password != "secret1" {
			writeJSON(http.StatusBadRequest, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(http.StatusOK, AuthResponse{Token: signedToken(b.t, body.Email)})
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/register":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, hasConfirm := body["confirmPassword"]
		assert.False(b.t, hasConfirm, "confirmation must stay client-side")
		email, _ := body["email"].(string)
		username, _ := body["username"].(string)
		b.users[email] = entities.UserSummary{ID: int64(len(b.users) + 1), Username: username, Email: email}
		writeJSON(http.StatusOK, AuthResponse{Token: signedToken(b.t, email)})
	case r.Method == http.MethodPost && r.URL.Path == "/api/auth/google":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(b.t, "web-client", body["clientId"])
		writeJSON(http.StatusOK, AuthResponse{Token: signedToken(b.t, "alice@example.com")})
	case r.Method == http.MethodGet && r.URL.Path == "/api/users/search":
		user, ok := b.users[r.URL.Query().Get("email")]
		if !ok {
			writeJSON(http.StatusNotFound, map[string]string{"message": "User not found"})
			return
		}
		writeJSON(http.StatusOK, user)
	case r.Method == http.MethodDelete && r.URL.Path == "/api/users/1":
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPut && r.URL.Path == "/api/users/1":
		var body ProfileInput
		_ = json.NewDecoder(r.Body).Decode(&body)
		u := b.users["alice@example.com"]
		if body.Username != "" {
			u.Username = body.Username
		}
		b.users[u.Email] = u
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *backend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

var aliceUser = entities.UserSummary{ID: 1, Username: "alice", Email: "alice@example.com"}

func newService(t *testing.T, serverURL, token string) (*Service, *Resolver, *tokenstore.MemoryStore) {
	t.Helper()
	tokens := tokenstore.NewMemory(token)
	client := api.New(serverURL, tokens)
	resolver := NewResolver(client, tokens, nil)
	return NewService(client, tokens, resolver, WithGoogleClientID("web-client")), resolver, tokens
}

func TestSubjectFromToken(t *testing.T) {
	sub, err := SubjectFromToken(signedToken(t, "alice@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sub)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := SubjectFromToken(token)
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", token)
	}

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = SubjectFromToken(noSub)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestResolver_RefreshCurrentUser(t *testing.T) {
	_, server := newBackend(t, aliceUser)
	_, resolver, _ := newService(t, server.URL, signedToken(t, "alice@example.com"))

	user := resolver.RefreshCurrentUser(context.Background())
	require.NotNil(t, user)
	assert.Equal(t, aliceUser, *user)
	assert.Equal(t, aliceUser, *resolver.Current())
}

func TestResolver_UnknownSubjectYieldsNil(t *testing.T) {
	_, server := newBackend(t, aliceUser)
	_, resolver, tokens := newService(t, server.URL, signedToken(t, "ghost@example.com"))

	assert.NotPanics(t, func() {
		assert.Nil(t, resolver.RefreshCurrentUser(context.Background()))
	})
	assert.Nil(t, resolver.Current())

	token, _ := tokens.GetToken(context.Background())
	assert.NotEmpty(t, token, "a failed lookup is not a logout")
}

func TestResolver_NoTokenOrMalformedToken(t *testing.T) {
	b, server := newBackend(t, aliceUser)

	_, resolver, _ := newService(t, server.URL, "")
	assert.Nil(t, resolver.RefreshCurrentUser(context.Background()))

	_, resolver, _ = newService(t, server.URL, "garbage")
	assert.Nil(t, resolver.RefreshCurrentUser(context.Background()))

	assert.Equal(t, 0, b.count("GET /api/users/search"))
}

func TestResolver_Subscribers(t *testing.T) {
	_, server := newBackend(t, aliceUser)
	_, resolver, _ := newService(t, server.URL, signedToken(t, "alice@example.com"))

	var seen []*entities.UserSummary
	resolver.Subscribe(func(u *entities.UserSummary) { seen = append(seen, u) })
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	resolver.RefreshCurrentUser(context.Background())
	resolver.RefreshCurrentUser(context.Background())
	require.Len(t, seen, 2, "unchanged user is not re-published")
	assert.Equal(t, "alice", seen[1].Username)

	resolver.Clear()
	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])
}

func TestResolver_SubscribersSeeChangesInOrder(t *testing.T) {
	resolver := NewResolver(nil, tokenstore.NewMemory(""), nil)
	alice := aliceUser
	bob := entities.UserSummary{ID: 2, Username: "bob", Email: "bob@example.com"}

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var last *entities.UserSummary
	resolver.Subscribe(func(u *entities.UserSummary) {
		if u != nil && u.ID == alice.ID {
			close(entered)
			<-release
		}
		mu.Lock()
		last = u
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		resolver.set(&alice)
	}()
	<-entered
	go func() {
		defer wg.Done()
		resolver.set(&bob)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, last)
	assert.Equal(t, resolver.Current(), last, "the last notification matches the current user")
}

func TestService_Login(t *testing.T) {
	_, server := newBackend(t, aliceUser)
	svc, resolver, tokens := newService(t, server.URL, "")

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrRequestFailed)
	assert.Contains(t, err.Error(), "Invalid credentials")
	assert.False(t, svc.Authenticated(context.Background()))

	user, err := svc.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(1), user.ID)
	assert.NotNil(t, resolver.Current())

	token, _ := tokens.GetToken(context.Background())
	assert.NotEmpty(t, token)
}

func TestService_LoginValidatesBeforeNetwork(t *testing.T) {
	b, server := newBackend(t, aliceUser)
	svc, _, _ := newService(t, server.URL, "")

	_, err := svc.Login(context.Background(), "not-an-email", "")
	require.ErrorIs(t, err, validation.ErrInvalidInput)

	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Problems, 2)
	assert.Equal(t, 0, b.count("POST /api/auth/login"))
}

func TestService_Register(t *testing.T) {
	b, server := newBackend(t)
	svc, _, _ := newService(t, server.URL, "")

	_, err := svc.Register(context.Background(), RegistrationInput{
		Username: "carol", Email: "carol@example.com", Password: "secret1", ConfirmPassword: "secret2",
	})
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"confirmPassword must match password"}, vErr.Problems)
	assert.Equal(t, 0, b.count("POST /api/auth/register"))

	user, err := svc.Register(context.Background(), RegistrationInput{
		Username: "carol", Email: "carol@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "carol", user.Username)
}

func TestService_LoginWithGoogle(t *testing.T) {
	_, server := newBackend(t, aliceUser)
	svc, _, _ := newService(t, server.URL, "")

	_, err := svc.LoginWithGoogle(context.Background(), "")
	assert.ErrorIs(t, err, validation.ErrInvalidInput)

	user, err := svc.LoginWithGoogle(context.Background(), "google-id-token")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestService_LogoutRunsHooks(t *testing.T) {
	_, server := newBackend(t, aliceUser)
	svc, resolver, tokens := newService(t, server.URL, signedToken(t, "alice@example.com"))
	resolver.RefreshCurrentUser(context.Background())

	var reset bool
	svc.OnLogout(func() { reset = true })

	require.NoError(t, svc.Logout(context.Background()))
	assert.True(t, reset)
	assert.Nil(t, resolver.Current())
	token, _ := tokens.GetToken(context.Background())
	assert.Empty(t, token)
}

func TestService_DeleteAccount(t *testing.T) {
	b, server := newBackend(t, aliceUser)
	svc, resolver, tokens := newService(t, server.URL, signedToken(t, "alice@example.com"))

	assert.ErrorIs(t, svc.DeleteAccount(context.Background()), ErrNotLoggedIn)

	resolver.RefreshCurrentUser(context.Background())
	require.NoError(t, svc.DeleteAccount(context.Background()))

	assert.Equal(t, 1, b.count("DELETE /api/users/1"))
	token, _ := tokens.GetToken(context.Background())
	assert.Empty(t, token)
	assert.Nil(t, resolver.Current())
}

func TestService_UpdateProfile(t *testing.T) {
	_, server := newBackend(t, aliceUser)
	svc, resolver, _ := newService(t, server.URL, signedToken(t, "alice@example.com"))
	resolver.RefreshCurrentUser(context.Background())

	_, err := svc.UpdateProfile(context.Background(), ProfileInput{})
	assert.ErrorIs(t, err, validation.ErrInvalidInput)

	user, err := svc.UpdateProfile(context.Background(), ProfileInput{Username: "alicia"})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alicia", user.Username)
}
