package cli

import (
	"context"
	"fmt"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entrypoint"
	"github.com/spf13/cobra"
)

// idAction builds a "<verb> <id>" subcommand for a logged-in user.
func idAction(r *runtime, use, short, done string, fn func(ctx context.Context, app *entrypoint.App, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := fn(cmd.Context(), app, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), done+"\n", target)
			return nil
		},
	}
}

// --- Friends ---

func newFriendsCommand(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "friends",
		Aliases: []string{"friend"},
		Short:   "Manage friends and friend requests",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List friends and requests you sent",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app, _, err := r.loggedIn(cmd.Context())
				if err != nil {
					return err
				}
				app.Friends.Refresh(cmd.Context())
				if err := app.Friends.LastRefreshError(); err != nil {
					return err
				}
				printFriendships(cmd.OutOrStdout(), app.Friends.Items(), "No friends yet.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "pending",
			Short: "List incoming friend requests",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app, _, err := r.loggedIn(cmd.Context())
				if err != nil {
					return err
				}
				app.Friends.RefreshPending(cmd.Context())
				printFriendships(cmd.OutOrStdout(), app.Friends.Pending(), "No pending requests.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <email>",
			Short: "Send a friend request",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, _, err := r.loggedIn(cmd.Context())
				if err != nil {
					return err
				}
				if err := app.Friends.SendRequest(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Friend request sent to %s\n", args[0])
				return nil
			},
		},
		idAction(r, "accept", "Accept a friend request", "Accepted friend request %d",
			func(ctx context.Context, app *entrypoint.App, id int64) error { return app.Friends.Accept(ctx, id) }),
		idAction(r, "reject", "Reject a friend request", "Rejected friend request %d",
			func(ctx context.Context, app *entrypoint.App, id int64) error { return app.Friends.Reject(ctx, id) }),
		idAction(r, "remove", "Remove a friend", "Removed friendship %d",
			func(ctx context.Context, app *entrypoint.App, id int64) error { return app.Friends.Remove(ctx, id) }),
	)
	return cmd
}

// --- Exchanges ---

func newExchangesCommand(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "exchanges",
		Aliases: []string{"exchange"},
		Short:   "Borrow and lend books",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List incoming and outgoing exchanges",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app, user, err := r.loggedIn(cmd.Context())
				if err != nil {
					return err
				}
				app.Exchanges.Refresh(cmd.Context())
				if err := app.Exchanges.LastRefreshError(); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printExchanges(out, "Requests for your books", app.Exchanges.Incoming(), user)
				printExchanges(out, "Books you asked to borrow", app.Exchanges.Outgoing(), user)
				return nil
			},
		},
		&cobra.Command{
			Use:   "request <book-id>",
			Short: "Ask to borrow a book",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				bookID, err := parseID(args[0])
				if err != nil {
					return err
				}
				app, _, err := r.loggedIn(cmd.Context())
				if err != nil {
					return err
				}
				exchange, err := app.Exchanges.Request(cmd.Context(), bookID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requested %q (exchange %d)\n", exchange.Book.Title, exchange.ID)
				return nil
			},
		},
		exchangeAction(r, "accept", "Lend the book", func(ctx context.Context, app *entrypoint.App, id int64) error {
			return app.Exchanges.Accept(ctx, id)
		}),
		exchangeAction(r, "reject", "Decline the request", func(ctx context.Context, app *entrypoint.App, id int64) error {
			return app.Exchanges.Reject(ctx, id)
		}),
		exchangeAction(r, "return", "Mark the book returned", func(ctx context.Context, app *entrypoint.App, id int64) error {
			return app.Exchanges.MarkReturned(ctx, id)
		}),
		idAction(r, "delete", "Delete an exchange", "Deleted exchange %d",
			func(ctx context.Context, app *entrypoint.App, id int64) error { return app.Exchanges.Delete(ctx, id) }),
	)
	return cmd
}

// exchangeAction loads the exchanges first so the result can be reported
// with its new status.
func exchangeAction(r *runtime, use, short string, fn func(ctx context.Context, app *entrypoint.App, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exchangeID, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := fn(cmd.Context(), app, exchangeID); err != nil {
				return err
			}
			if e, ok := app.Exchanges.Find(exchangeID); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Exchange %d for %q is now %s\n", e.ID, e.Book.Title, e.Status)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exchange %d updated\n", exchangeID)
			return nil
		},
	}
}

// --- Reviews ---

// ReviewFlags holds a review being written.
type ReviewFlags struct {
	Rating  int
	Comment string
}

func newReviewsCommand(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "reviews",
		Aliases: []string{"review"},
		Short:   "Read and write book reviews",
	}

	add := &ReviewFlags{}
	addCmd := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Review a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			review, err := app.Reviews.Create(cmd.Context(), entities.ReviewInput{BookID: bookID, Rating: add.Rating, Comment: add.Comment})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Review %d saved. Average rating is now %.1f\n", review.ID, app.Reviews.AverageRating())
			return nil
		},
	}
	addCmd.Flags().IntVarP(&add.Rating, "rating", "r", 0, "Rating from 1 to 5")
	addCmd.Flags().StringVarP(&add.Comment, "comment", "c", "", "Review text")

	edit := &ReviewFlags{}
	var editBookID int64
	editCmd := &cobra.Command{
		Use:   "edit <review-id>",
		Short: "Change one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewID, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			input := entities.ReviewInput{BookID: editBookID, Rating: edit.Rating, Comment: edit.Comment}
			if err := app.Reviews.Update(cmd.Context(), reviewID, input); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Review %d updated\n", reviewID)
			return nil
		},
	}
	editCmd.Flags().Int64Var(&editBookID, "book", 0, "Book the review belongs to")
	editCmd.Flags().IntVarP(&edit.Rating, "rating", "r", 0, "Rating from 1 to 5")
	editCmd.Flags().StringVarP(&edit.Comment, "comment", "c", "", "Review text")
	_ = editCmd.MarkFlagRequired("book")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <book-id>",
			Short: "Show the reviews of a book",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				bookID, err := parseID(args[0])
				if err != nil {
					return err
				}
				app, _, err := r.loggedIn(cmd.Context())
				if err != nil {
					return err
				}
				app.Reviews.FetchForBook(cmd.Context(), bookID)
				if err := app.Reviews.LastRefreshError(); err != nil {
					return err
				}
				printReviews(cmd.OutOrStdout(), app.Reviews.Items(), app.Reviews.AverageRating())
				return nil
			},
		},
		addCmd,
		editCmd,
		idAction(r, "delete", "Delete one of your reviews", "Deleted review %d",
			func(ctx context.Context, app *entrypoint.App, id int64) error { return app.Reviews.Delete(ctx, id) }),
	)
	return cmd
}

// --- Notifications ---

func newNotificationsCommand(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "Read your notifications",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List notifications, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app, _, err := r.loggedIn(cmd.Context())
				if err != nil {
					return err
				}
				app.Notifications.Refresh(cmd.Context())
				if err := app.Notifications.LastRefreshError(); err != nil {
					return err
				}
				printNotifications(cmd.OutOrStdout(), app.Notifications.Items(), app.Notifications.UnreadCount())
				return nil
			},
		},
		idAction(r, "read", "Mark a notification read", "Marked notification %d read",
			func(ctx context.Context, app *entrypoint.App, id int64) error { return app.Notifications.MarkRead(ctx, id) }),
		&cobra.Command{
			Use:   "read-all",
			Short: "Mark every notification read",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				app, _, err := r.loggedIn(cmd.Context())
				if err != nil {
					return err
				}
				if err := app.Notifications.MarkAllRead(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All notifications marked read.")
				return nil
			},
		},
		idAction(r, "delete", "Delete a notification", "Deleted notification %d",
			func(ctx context.Context, app *entrypoint.App, id int64) error { return app.Notifications.Delete(ctx, id) }),
	)
	return cmd
}
