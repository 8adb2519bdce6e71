package cli

import (
	"fmt"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/session"
	"github.com/spf13/cobra"
)

// LoginCommand signs in with email and password.
type LoginCommand struct {
	Email string
}

func newLoginCommand(r *runtime) *cobra.Command {
	opts := &LoginCommand{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.application()
			if err != nil {
				return err
			}
			if opts.Email == "" {
				if opts.Email, err = r.readLine("Email: "); err != nil {
					return err
				}
			}
			password, err := r.readPassword("Password: ")
			if err != nil {
				return err
			}

			user, err := app.Session.Login(cmd.Context(), opts.Email, password)
			if err != nil {
				return err
			}
			printWelcome(cmd, user)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "Account email")
	return cmd
}

// GoogleLoginCommand exchanges a Google ID token for a session.
type GoogleLoginCommand struct {
	IDToken string
}

func newGoogleLoginCommand(r *runtime) *cobra.Command {
	opts := &GoogleLoginCommand{}
	cmd := &cobra.Command{
		Use:   "login-google",
		Short: "Sign in with a Google ID token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.application()
			if err != nil {
				return err
			}
			user, err := app.Session.LoginWithGoogle(cmd.Context(), opts.IDToken)
			if err != nil {
				return err
			}
			printWelcome(cmd, user)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.IDToken, "id-token", "", "ID token issued by Google Sign-In")
	_ = cmd.MarkFlagRequired("id-token")
	return cmd
}

// RegisterCommand creates an account and signs in.
type RegisterCommand struct {
	Username string
	Email    string
}

func newRegisterCommand(r *runtime) *cobra.Command {
	opts := &RegisterCommand{}
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.application()
			if err != nil {
				return err
			}
			password, err := r.readPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := r.readPassword("Confirm password: ")
			if err != nil {
				return err
			}

			user, err := app.Session.Register(cmd.Context(), session.RegistrationInput{
				Username:        opts.Username,
				Email:           opts.Email,
				Password:        password,
				ConfirmPassword: confirm,
			})
			if err != nil {
				return err
			}
			printWelcome(cmd, user)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "Display name")
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "Account email")
	return cmd
}

func newLogoutCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.application()
			if err != nil {
				return err
			}
			if err := app.Session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, user, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (id %d)\n", user.Username, user.Email, user.ID)
			return nil
		},
	}
}

// ProfileCommand updates the signed-in user's username or email.
type ProfileCommand struct {
	Username string
	Email    string
}

func newProfileCommand(r *runtime) *cobra.Command {
	opts := &ProfileCommand{}
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Change your username or email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			user, err := app.Session.UpdateProfile(cmd.Context(), session.ProfileInput{
				Username: opts.Username,
				Email:    opts.Email,
			})
			if err != nil {
				return err
			}
			if user == nil {
				// The token still names the old email; a new login is needed.
				fmt.Fprintln(cmd.OutOrStdout(), "Profile updated. Please log in again.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile updated: %s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "New username")
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "New email")
	return cmd
}

// DeleteAccountCommand permanently removes the account.
type DeleteAccountCommand struct {
	Yes bool
}

func newDeleteAccountCommand(r *runtime) *cobra.Command {
	opts := &DeleteAccountCommand{}
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Permanently delete your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, user, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			if !opts.Yes {
				answer, err := r.readLine(fmt.Sprintf("Delete account %s? This cannot be undone [y/N]: ", user.Email))
				if err != nil {
					return err
				}
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			if err := app.Session.DeleteAccount(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func printWelcome(cmd *cobra.Command, user *entities.UserSummary) {
	if user == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Signed in.")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", user.Username, user.Email)
}
