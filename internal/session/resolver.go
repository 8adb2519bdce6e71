// Package session owns authentication flows and the current-user view that
// the owner-scoped stores depend on.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/tokenstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const userSearchPath = "/api/users/search"

// ErrMalformedToken is returned by SubjectFromToken for tokens that do not
// decode to claims carrying a subject.
var ErrMalformedToken = errors.New("malformed token")

// API is the gateway call the session layer needs.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Subscriber is told about every change of the current user. nil means
// logged out or unresolved.
type Subscriber func(user *entities.UserSummary)

// SubjectFromToken reads the "sub" claim without verifying the signature.
// The server checks the token on every request, so the client only needs
// the identity hint.
func SubjectFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if strings.TrimSpace(sub) == "" {
		return "", fmt.Errorf("%w: empty subject", ErrMalformedToken)
	}
	return sub, nil
}

// Resolver derives the logged-in user from the stored token.
type Resolver struct {
	api    API
	tokens tokenstore.Store
	log    logrus.FieldLogger

	// notifyMu orders fan-outs so subscribers see changes in commit order.
	notifyMu    sync.Mutex
	mu          sync.RWMutex
	current     *entities.UserSummary
	subscribers []Subscriber
}

func NewResolver(client API, tokens tokenstore.Store, log logrus.FieldLogger) *Resolver {
	return &Resolver{
		api:    client,
		tokens: tokens,
		log:    logging.OrDiscard(log).WithField("component", "resolver"),
	}
}

// Subscribe registers fn and immediately replays the current value to it.
// Subscribers must not call back into the Resolver.
func (r *Resolver) Subscribe(fn Subscriber) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	r.subscribers = append(r.subscribers, fn)
	current := copyUser(r.current)
	r.mu.Unlock()

	fn(current)
}

// Current returns a copy of the resolved user, or nil.
func (r *Resolver) Current() *entities.UserSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyUser(r.current)
}

// Clear forgets the current user.
func (r *Resolver) Clear() {
	r.set(nil)
}

// RefreshCurrentUser resolves the token subject against the user search
// endpoint. Any failure yields nil and clears the current user.
func (r *Resolver) RefreshCurrentUser(ctx context.Context) *entities.UserSummary {
	user, err := r.resolve(ctx)
	if err != nil {
		r.log.WithError(err).Debug("current user unresolved")
		r.set(nil)
		return nil
	}
	r.set(user)
	return copyUser(user)
}

func (r *Resolver) resolve(ctx context.Context) (*entities.UserSummary, error) {
	token, err := r.tokens.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return nil, errors.New("no token")
	}

	email, err := SubjectFromToken(token)
	if err != nil {
		return nil, err
	}

	path := userSearchPath + "?email=" + url.QueryEscape(email)
	var user entities.UserSummary
	if err := r.api.Do(ctx, http.MethodGet, path, nil, &user); err != nil {
		return nil, fmt.Errorf("search user %s: %w", email, err)
	}
	if err := api.ValidateOne(path, user); err != nil {
		return nil, err
	}
	if !strings.EqualFold(user.Email, email) {
		return nil, fmt.Errorf("search for %s returned %s", email, user.Email)
	}
	return &user, nil
}

func (r *Resolver) set(user *entities.UserSummary) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if sameUser(r.current, user) {
		r.mu.Unlock()
		return
	}
	r.current = copyUser(user)
	subscribers := append([]Subscriber(nil), r.subscribers...)
	r.mu.Unlock()

	for _, fn := range subscribers {
		fn(copyUser(user))
	}
}

func sameUser(a, b *entities.UserSummary) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyUser(u *entities.UserSummary) *entities.UserSummary {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
