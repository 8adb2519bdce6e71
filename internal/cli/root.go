// Package cli is the mylibrary command line: session management, the five
// collections, catalogue search, ISBN scanning and the background watcher.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/config"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entrypoint"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/session"
	"github.com/bremen-jose-oliveira/mylibrary/internal/validation"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var errNotLoggedIn = errors.New("not logged in, run 'mylibrary login' first")

// Options controls how the commands reach the outside world. Zero values
// fall back to the process's stdio, environment config and token database.
type Options struct {
	Version string
	Commit  string

	In  io.Reader
	Out io.Writer
	Err io.Writer

	Config       func() *config.Config
	NewApp       func(cfg *config.Config, log logrus.FieldLogger) (*entrypoint.App, error)
	ReadPassword func(prompt string) (string, error)
}

func (o *Options) setDefaults() {
	if o.In == nil {
		o.In = os.Stdin
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.Config == nil {
		o.Config = config.NewConfig
	}
	if o.NewApp == nil {
		o.NewApp = entrypoint.New
	}
}

// runtime is the state shared by one command invocation.
type runtime struct {
	opts  Options
	cfg   *config.Config
	log   *logrus.Logger
	app   *entrypoint.App
	stdin *bufio.Reader

	apiURL   string
	logLevel string
}

// Execute runs the command line and returns the process exit code.
func Execute(opts Options, args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, r := newRoot(opts)
	defer func() {
		if err := r.close(); err != nil {
			r.log.WithError(err).Warn("failed to close token store")
		}
	}()

	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %s\n", describeError(err))
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree.
func NewRootCommand(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

func newRoot(opts Options) (*cobra.Command, *runtime) {
	opts.setDefaults()
	r := &runtime{opts: opts}

	root := &cobra.Command{
		Use:           "mylibrary",
		Short:         "Manage your book library, friends and book exchanges",
		Version:       fmt.Sprintf("%s (%s)", opts.Version, opts.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			r.setup()
		},
	}
	root.SetIn(opts.In)
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	root.PersistentFlags().StringVar(&r.apiURL, "api-url", "", "Backend base URL (overrides API_BASE_URL)")
	root.PersistentFlags().StringVar(&r.logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newLoginCommand(r),
		newGoogleLoginCommand(r),
		newRegisterCommand(r),
		newLogoutCommand(r),
		newWhoamiCommand(r),
		newProfileCommand(r),
		newDeleteAccountCommand(r),
		newBooksCommand(r),
		newFriendsCommand(r),
		newExchangesCommand(r),
		newReviewsCommand(r),
		newNotificationsCommand(r),
		newWatchCommand(r),
		newFakeServerCommand(r),
	)
	return root, r
}

func (r *runtime) setup() {
	r.cfg = r.opts.Config()
	if r.apiURL != "" {
		r.cfg.API.BaseURL = r.apiURL
	}
	if r.logLevel != "" {
		r.cfg.Logging.Level = r.logLevel
	}
	r.log = logging.NewWithOutput(r.opts.Err, r.cfg.Logging.Level, r.cfg.Logging.Format)
}

// application opens the client core on first use.
func (r *runtime) application() (*entrypoint.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	app, err := r.opts.NewApp(r.cfg, r.log)
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

func (r *runtime) close() error {
	if r.app == nil {
		return nil
	}
	err := r.app.Close()
	r.app = nil
	return err
}

// loggedIn opens the app and resolves the current user, failing when there
// is no usable session.
func (r *runtime) loggedIn(ctx context.Context) (*entrypoint.App, *entities.UserSummary, error) {
	app, err := r.application()
	if err != nil {
		return nil, nil, err
	}
	if !app.Session.Authenticated(ctx) {
		return nil, nil, errNotLoggedIn
	}
	user := app.Resolver.RefreshCurrentUser(ctx)
	if user == nil {
		return nil, nil, errNotLoggedIn
	}
	return app, user, nil
}

// readLine reads one line from the command's input.
func (r *runtime) readLine(prompt string) (string, error) {
	if r.stdin == nil {
		r.stdin = bufio.NewReader(r.opts.In)
	}
	fmt.Fprint(r.opts.Err, prompt)
	line, err := r.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a password without echo when attached to a terminal.
func (r *runtime) readPassword(prompt string) (string, error) {
	if r.opts.ReadPassword != nil {
		return r.opts.ReadPassword(prompt)
	}
	if f, ok := r.opts.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(r.opts.Err, prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.opts.Err)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return r.readLine(prompt)
}

// describeError turns the client's error kinds into user-facing text.
func describeError(err error) string {
	var validationErr *validation.ValidationError
	var requestErr *api.RequestError
	switch {
	case errors.Is(err, api.ErrSessionExpired):
		return "your session has expired, please log in again"
	case errors.As(err, &validationErr):
		return strings.Join(validationErr.Problems, "; ")
	case errors.Is(err, api.ErrMalformedResponse):
		return "the server sent an unexpected response: " + err.Error()
	case errors.As(err, &requestErr) && requestErr.StatusCode == 0:
		return "could not reach the server: " + err.Error()
	case errors.Is(err, session.ErrNotLoggedIn):
		return errNotLoggedIn.Error()
	}
	return err.Error()
}
