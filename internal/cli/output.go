package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/metadata"
)

const maxColumnWidth = 40

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func row(tw *tabwriter.Writer, cells ...string) {
	for i, c := range cells {
		cells[i] = truncate(c, maxColumnWidth)
	}
	fmt.Fprintln(tw, strings.Join(cells, "\t"))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func idString(v int64) string { return strconv.FormatInt(v, 10) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printBooks(w io.Writer, books []entities.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books.")
		return
	}
	tw := newTable(w, "ID", "TITLE", "AUTHOR", "STATUS", "EXCHANGE", "REVIEWS")
	for _, b := range books {
		row(tw, idString(b.ID), b.Title, b.Author, orDash(string(b.ReadingStatus)), orDash(b.ExchangeStatus), strconv.Itoa(b.ReviewCount))
	}
	tw.Flush()
}

func printBook(w io.Writer, b *entities.Book) {
	fmt.Fprintf(w, "%s by %s\n", b.Title, b.Author)
	fields := []struct{ label, value string }{
		{"ID", idString(b.ID)},
		{"Owner", b.OwnerUsername},
		{"Publisher", b.Publisher},
		{"ISBN", b.ISBN},
		{"Reading", string(b.ReadingStatus)},
		{"Exchange", b.ExchangeStatus},
	}
	if b.Year > 0 {
		fields = append(fields, struct{ label, value string }{"Year", strconv.Itoa(b.Year)})
	}
	if b.HasCover() {
		fields = append(fields, struct{ label, value string }{"Cover", *b.Cover})
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(w, "  %-10s %s\n", f.label+":", f.value)
		}
	}
}

func printCatalogue(w io.Writer, results []metadata.BookMetadata) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matches.")
		return
	}
	tw := newTable(w, "TITLE", "AUTHOR", "YEAR", "ISBN")
	for _, m := range results {
		year := "-"
		if m.PublicationYear > 0 {
			year = strconv.Itoa(m.PublicationYear)
		}
		row(tw, m.Title, orDash(m.Author), year, orDash(m.ISBN))
	}
	tw.Flush()
}

func printDraft(w io.Writer, d *entities.BookInput) {
	fmt.Fprintf(w, "Title:     %s\n", orDash(d.Title))
	fmt.Fprintf(w, "Author:    %s\n", orDash(d.Author))
	fmt.Fprintf(w, "ISBN:      %s\n", orDash(d.ISBN))
	if d.Year > 0 {
		fmt.Fprintf(w, "Year:      %d\n", d.Year)
	}
	if d.Cover != "" {
		fmt.Fprintf(w, "Cover:     %s\n", d.Cover)
	}
}

func printFriendships(w io.Writer, friendships []entities.Friendship, empty string) {
	if len(friendships) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	tw := newTable(w, "ID", "EMAIL", "USERNAME", "STATUS")
	for _, f := range friendships {
		row(tw, idString(f.ID), f.FriendEmail, orDash(f.FriendUsername), string(f.FriendshipStatus))
	}
	tw.Flush()
}

func printExchanges(w io.Writer, title string, exchanges []entities.Exchange, user *entities.UserSummary) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(exchanges) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	tw := newTable(w, "ID", "BOOK", "OWNER", "BORROWER", "STATUS", "ACTIONS")
	for _, e := range exchanges {
		var actions []string
		if e.OwnerActionsAllowed(user) {
			actions = append(actions, "accept", "reject")
		}
		if e.ReturnAllowed(user) {
			actions = append(actions, "return")
		}
		row(tw, idString(e.ID), e.Book.Title, orDash(e.Book.OwnerUsername), e.Borrower.Username, string(e.Status), orDash(strings.Join(actions, ",")))
	}
	tw.Flush()
}

func printReviews(w io.Writer, reviews []entities.Review, average float64) {
	if len(reviews) == 0 {
		fmt.Fprintln(w, "No reviews yet.")
		return
	}
	fmt.Fprintf(w, "Average rating: %.1f (%d reviews)\n", average, len(reviews))
	tw := newTable(w, "ID", "BY", "RATING", "COMMENT")
	for _, r := range reviews {
		row(tw, idString(r.ID), r.Author.Username, strings.Repeat("*", r.Rating), r.Comment)
	}
	tw.Flush()
}

func printNotifications(w io.Writer, notifications []entities.Notification, unread int) {
	if len(notifications) == 0 {
		fmt.Fprintln(w, "No notifications.")
		return
	}
	fmt.Fprintf(w, "%d unread\n", unread)
	tw := newTable(w, "ID", "", "TYPE", "MESSAGE", "WHEN")
	for _, n := range notifications {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		row(tw, idString(n.ID), marker, string(n.Type), n.Message, n.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
