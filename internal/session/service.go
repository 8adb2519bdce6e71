package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/tokenstore"
	"github.com/bremen-jose-oliveira/mylibrary/internal/validation"
	"github.com/sirupsen/logrus"
)

const (
	loginPath    = "/api/auth/login"
	registerPath = "/api/auth/register"
	googlePath   = "/api/auth/google"
	usersPath    = "/api/users"
)

// ErrNotLoggedIn is returned by account operations when no user is resolved.
var ErrNotLoggedIn = errors.New("not logged in")

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegistrationInput struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

type ProfileInput struct {
	Username string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	IDToken  string `json:"idToken" validate:"required"`
	ClientID string `json:"clientId,omitempty"`
}

// AuthResponse is what every auth endpoint returns on success.
type AuthResponse struct {
	Token string `json:"token"`
}

func (r AuthResponse) Validate() error {
	if r.Token == "" {
		return errors.New("missing token")
	}
	return nil
}

// Service runs the auth flows. Every successful login stores the token and
// then resolves the current user.
type Service struct {
	api            API
	tokens         tokenstore.Store
	resolver       *Resolver
	googleClientID string
	log            logrus.FieldLogger

	mu       sync.Mutex
	onLogout []func()
}

type Option func(*Service)

// WithGoogleClientID sets the OAuth client id sent along with Google ID
// tokens.
func WithGoogleClientID(id string) Option {
	return func(s *Service) { s.googleClientID = id }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(client API, tokens tokenstore.Store, resolver *Resolver, opts ...Option) *Service {
	s := &Service{
		api:      client,
		tokens:   tokens,
		resolver: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrDiscard(s.log).WithField("component", "session")
	return s
}

// OnLogout registers fn to run after every logout, explicit or not.
func (s *Service) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

func (s *Service) Login(ctx context.Context, email, password string) (*entities.UserSummary, error) {
	input := LoginInput{Email: email, Password: password}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, loginPath, input)
}

func (s *Service) Register(ctx context.Context, input RegistrationInput) (*entities.UserSummary, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, registerPath, registerRequest{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
	})
}

// LoginWithGoogle exchanges a Google ID token for a backend session.
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*entities.UserSummary, error) {
	req := googleLoginRequest{IDToken: idToken, ClientID: s.googleClientID}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.authenticate(ctx, googlePath, req)
}

func (s *Service) authenticate(ctx context.Context, path string, body any) (*entities.UserSummary, error) {
	var resp AuthResponse
	if err := s.api.Do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if err := api.ValidateOne(path, resp); err != nil {
		return nil, err
	}

	if err := s.tokens.StoreToken(ctx, resp.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	user := s.resolver.RefreshCurrentUser(ctx)
	if user != nil {
		s.log.WithField("user", user.Email).Info("logged in")
	}
	return user, nil
}

// Logout drops the token and every piece of user state.
func (s *Service) Logout(ctx context.Context) error {
	err := s.tokens.RemoveToken(ctx)
	s.Expire()
	if err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Expire clears in-memory user state without touching the token store. The
// gateway calls it after a 401 has already removed the token.
func (s *Service) Expire() {
	s.resolver.Clear()

	s.mu.Lock()
	hooks := append([]func(){}, s.onLogout...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// DeleteAccount removes the current user's account and logs out.
func (s *Service) DeleteAccount(ctx context.Context) error {
	user := s.resolver.Current()
	if user == nil {
		return ErrNotLoggedIn
	}

	if err := s.api.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", usersPath, user.ID), nil, nil); err != nil {
		return fmt.Errorf("delete account %d: %w", user.ID, err)
	}
	s.log.WithField("user", user.Email).Info("account deleted")
	return s.Logout(ctx)
}

// UpdateProfile changes the current user's details and re-resolves them.
func (s *Service) UpdateProfile(ctx context.Context, input ProfileInput) (*entities.UserSummary, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.Username == "" && input.Email == "" {
		return nil, validation.New("nothing to update")
	}

	user := s.resolver.Current()
	if user == nil {
		return nil, ErrNotLoggedIn
	}

	if err := s.api.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", usersPath, user.ID), input, nil); err != nil {
		return nil, fmt.Errorf("update profile %d: %w", user.ID, err)
	}
	return s.resolver.RefreshCurrentUser(ctx), nil
}

// Authenticated reports whether a token is present.
func (s *Service) Authenticated(ctx context.Context) bool {
	token, err := s.tokens.GetToken(ctx)
	return err == nil && token != ""
}
