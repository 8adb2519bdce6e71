package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/scanner"
	"github.com/spf13/cobra"
)

func parseID(arg string) (int64, error) {
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return v, nil
}

func parseReadingStatus(s string) (entities.ReadingStatus, error) {
	status := entities.ReadingStatus(strings.ToUpper(strings.ReplaceAll(s, "-", "_")))
	if !status.Valid() {
		return "", fmt.Errorf("unknown reading status %q (want not-read, reading or read)", s)
	}
	return status, nil
}

func newBooksCommand(r *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"book"},
		Short:   "List and manage your books",
	}
	cmd.AddCommand(
		newBooksListCommand(r),
		newBooksShowCommand(r),
		newBooksOwnerCommand(r),
		newBooksAddCommand(r),
		newBooksUpdateCommand(r),
		newBooksStatusCommand(r),
		newBooksDeleteCommand(r),
		newBooksCoverCommand(r),
		newBooksSearchCommand(r),
		newBooksScanCommand(r),
	)
	return cmd
}

func newBooksListCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			app.Books.Refresh(cmd.Context())
			if err := app.Books.LastRefreshError(); err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), app.Books.Items())
			return nil
		},
	}
}

func newBooksShowCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a book and its reviews",
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
			book, err := app.Books.Get(cmd.Context(), bookID)
			if err != nil {
				return err
			}
			printBook(cmd.OutOrStdout(), book)

			app.Reviews.FetchForBook(cmd.Context(), bookID)
			if err := app.Reviews.LastRefreshError(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			printReviews(cmd.OutOrStdout(), app.Reviews.Items(), app.Reviews.AverageRating())
			return nil
		},
	}
}

func newBooksOwnerCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "owner <email>",
		Short: "List the books another user owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			books, err := app.Books.ListByOwner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}
}

// BookFlags holds the editable fields of a book.
type BookFlags struct {
	Title     string
	Author    string
	Year      int
	Publisher string
	ISBN      string
	Cover     string
	Status    string
}

func (f *BookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Title, "title", "t", "", "Book title")
	cmd.Flags().StringVarP(&f.Author, "author", "a", "", "Book author")
	cmd.Flags().IntVar(&f.Year, "year", 0, "Publication year")
	cmd.Flags().StringVar(&f.Publisher, "publisher", "", "Publisher")
	cmd.Flags().StringVar(&f.ISBN, "isbn", "", "ISBN-10 or ISBN-13")
	cmd.Flags().StringVar(&f.Cover, "cover", "", "Cover image URL")
	cmd.Flags().StringVar(&f.Status, "status", "", "Reading status: not-read, reading or read")
}

func (f *BookFlags) input() (entities.BookInput, error) {
	input := entities.BookInput{
		Title:     f.Title,
		Author:    f.Author,
		Year:      f.Year,
		Publisher: f.Publisher,
		Cover:     f.Cover,
	}
	if f.ISBN != "" {
		normalized, err := scanner.NormalizeISBN(f.ISBN)
		if err != nil {
			return input, err
		}
		input.ISBN = normalized
	}
	if f.Status != "" {
		status, err := parseReadingStatus(f.Status)
		if err != nil {
			return input, err
		}
		input.ReadingStatus = status
	}
	return input, nil
}

func newBooksAddCommand(r *runtime) *cobra.Command {
	flags := &BookFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to your library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := flags.input()
			if err != nil {
				return err
			}
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			book, err := app.Books.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (id %d)\n", book.Title, book.ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newBooksUpdateCommand(r *runtime) *cobra.Command {
	flags := &BookFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a book; unset flags keep their current value",
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
			current, err := app.Books.Get(cmd.Context(), bookID)
			if err != nil {
				return err
			}
			mergeBook(flags, cmd, current)

			input, err := flags.input()
			if err != nil {
				return err
			}
			if err := app.Books.Update(cmd.Context(), bookID, input); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %q\n", input.Title)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// mergeBook fills flags the user did not pass from the stored book.
func mergeBook(f *BookFlags, cmd *cobra.Command, b *entities.Book) {
	changed := cmd.Flags().Changed
	if !changed("title") {
		f.Title = b.Title
	}
	if !changed("author") {
		f.Author = b.Author
	}
	if !changed("year") {
		f.Year = b.Year
	}
	if !changed("publisher") {
		f.Publisher = b.Publisher
	}
	if !changed("isbn") {
		f.ISBN = b.ISBN
	}
	if !changed("cover") && b.HasCover() {
		f.Cover = *b.Cover
	}
	if !changed("status") {
		f.Status = string(b.ReadingStatus)
	}
}

func newBooksStatusCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <not-read|reading|read>",
		Short: "Change a book's reading status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := parseReadingStatus(args[1])
			if err != nil {
				return err
			}
			app, _, err := r.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.Books.UpdateReadingStatus(cmd.Context(), bookID, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book %d is now %s\n", bookID, status)
			return nil
		},
	}
}

func newBooksDeleteCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a book from your library",
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
			if err := app.Books.Delete(cmd.Context(), bookID); err != nil {
				return err
			}
			if cache, err := app.CoverCache(); err == nil {
				if err := cache.InvalidateCover(bookID); err != nil {
					r.log.WithError(err).WithField("book_id", bookID).Warn("failed to drop cached cover")
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %d\n", bookID)
			return nil
		},
	}
}

func newBooksCoverCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "cover <id>",
		Short: "Download a book's cover and print the local path",
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
			book, err := app.Books.Get(cmd.Context(), bookID)
			if err != nil {
				return err
			}
			if !book.HasCover() {
				cover := app.Enricher.FetchCover(cmd.Context(), book.Title, book.Author)
				if cover == "" {
					return fmt.Errorf("no cover found for %q", book.Title)
				}
				book.Cover = &cover
			}

			cache, err := app.CoverCache()
			if err != nil {
				return err
			}
			path, err := cache.GetCover(cmd.Context(), book.ID, *book.Cover)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newBooksSearchCommand(r *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the public catalogue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.application()
			if err != nil {
				return err
			}
			results, err := app.Catalogue.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printCatalogue(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

// ScanCommand resolves a scanned barcode into a draft book.
type ScanCommand struct {
	Format string
	Add    bool
}

func newBooksScanCommand(r *runtime) *cobra.Command {
	opts := &ScanCommand{}
	cmd := &cobra.Command{
		Use:   "scan [barcode]",
		Short: "Look up a barcode and optionally add the book",
		Long: "Look up an EAN-13 or ISBN barcode in the catalogue. Without an argument\n" +
			"the code is read from standard input, one line, as a scanner would type it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.application()
			if err != nil {
				return err
			}

			scan := scanner.NewSession()
			defer scan.Close()
			go func() {
				code := ""
				if len(args) == 1 {
					code = args[0]
				} else if line, err := r.readLine("Scan a barcode: "); err == nil {
					code = line
				}
				if code == "" {
					scan.Close()
					return
				}
				scan.Deliver(scanner.Scan{Code: code, Format: opts.Format})
			}()

			draft, err := scanner.Lookup(cmd.Context(), scan, app.ISBNFinder())
			if err != nil {
				return err
			}
			printDraft(cmd.OutOrStdout(), draft)
			if !opts.Add {
				return nil
			}

			if _, _, err := r.loggedIn(cmd.Context()); err != nil {
				return err
			}
			book, err := app.Books.Create(cmd.Context(), *draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (id %d)\n", book.Title, book.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "ean13", "Barcode symbology reported by the scanner")
	cmd.Flags().BoolVar(&opts.Add, "add", false, "Add the book to your library")
	return cmd
}
