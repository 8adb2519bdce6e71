package fakeapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
)

const (
	exchangeAvailable = "AVAILABLE"
	exchangeLent      = "LENT"
)

type user struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
}

func (u *user) summary() entities.UserSummary {
	return entities.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

type book struct {
	entities.Book
	OwnerID int64
}

type friendship struct {
	ID          int64
	RequesterID int64
	AddresseeID int64
	Status      entities.FriendshipStatus
	CreatedAt   time.Time
}

type exchange struct {
	ID         int64
	BookID     int64
	BorrowerID int64
	Status     entities.ExchangeStatus
	Date       time.Time
}

type notification struct {
	entities.Notification
	UserID int64
}

// state is the whole backend, guarded by one mutex.
type state struct {
	mu sync.Mutex

	nextID        int64
	users         map[int64]*user
	books         map[int64]*book
	friendships   map[int64]*friendship
	exchanges     map[int64]*exchange
	reviews       map[int64]*entities.Review
	notifications map[int64]*notification
	now           func() time.Time
}

func newState(now func() time.Time) *state {
	return &state{
		users:         make(map[int64]*user),
		books:         make(map[int64]*book),
		friendships:   make(map[int64]*friendship),
		exchanges:     make(map[int64]*exchange),
		reviews:       make(map[int64]*entities.Review),
		notifications: make(map[int64]*notification),
		now:           now,
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *state) userByEmail(email string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (s *state) bookView(b *book) entities.Book {
	view := b.Book
	if owner := s.users[b.OwnerID]; owner != nil {
		view.OwnerUsername = owner.Username
	}
	view.ReviewCount = 0
	for _, r := range s.reviews {
		if r.BookID == b.ID {
			view.ReviewCount++
		}
	}
	if b.Cover != nil {
		c := *b.Cover
		view.Cover = &c
	}
	return view
}

func (s *state) booksOwnedBy(ownerID int64) []entities.Book {
	out := []entities.Book{}
	for _, b := range s.books {
		if b.OwnerID == ownerID {
			out = append(out, s.bookView(b))
		}
	}
	sortByID(out, func(b entities.Book) int64 { return b.ID })
	return out
}

// friendshipView shows a friendship from viewer's side.
func (s *state) friendshipView(f *friendship, viewerID int64) entities.Friendship {
	otherID := f.AddresseeID
	if otherID == viewerID {
		otherID = f.RequesterID
	}
	view := entities.Friendship{ID: f.ID, FriendshipStatus: f.Status, CreatedAt: f.CreatedAt}
	if other := s.users[otherID]; other != nil {
		view.FriendEmail = other.Email
		view.FriendUsername = other.Username
	}
	return view
}

func (s *state) friendshipBetween(a, b int64) *friendship {
	for _, f := range s.friendships {
		if (f.RequesterID == a && f.AddresseeID == b) || (f.RequesterID == b && f.AddresseeID == a) {
			return f
		}
	}
	return nil
}

func (s *state) exchangeView(e *exchange) entities.Exchange {
	view := entities.Exchange{ID: e.ID, Status: e.Status, ExchangeDate: e.Date}
	if b := s.books[e.BookID]; b != nil {
		view.Book = s.bookView(b)
	}
	if borrower := s.users[e.BorrowerID]; borrower != nil {
		view.Borrower = borrower.summary()
	}
	return view
}

func (s *state) reviewsFor(bookID int64) []entities.Review {
	out := []entities.Review{}
	for _, r := range s.reviews {
		if r.BookID == bookID {
			view := *r
			if author := s.users[r.Author.ID]; author != nil {
				view.Author = author.summary()
			}
			out = append(out, view)
		}
	}
	sortByID(out, func(r entities.Review) int64 { return r.ID })
	return out
}

func (s *state) notify(userID int64, kind entities.NotificationType, title, message string, related func(*entities.Notification)) {
	if s.users[userID] == nil {
		return
	}
	n := &notification{
		UserID: userID,
		Notification: entities.Notification{
			ID:        s.id(),
			Type:      kind,
			Title:     title,
			Message:   message,
			CreatedAt: s.now(),
		},
	}
	if related != nil {
		related(&n.Notification)
	}
	s.notifications[n.ID] = n
}

func (s *state) notificationsFor(userID int64) []entities.Notification {
	out := []entities.Notification{}
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n.Notification)
		}
	}
	// Newest first
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// deleteUser removes an account and everything that references it.
func (s *state) deleteUser(userID int64) {
	delete(s.users, userID)
	for id, b := range s.books {
		if b.OwnerID == userID {
			s.deleteBook(id)
		}
	}
	for id, f := range s.friendships {
		if f.RequesterID == userID || f.AddresseeID == userID {
			delete(s.friendships, id)
		}
	}
	for id, e := range s.exchanges {
		if e.BorrowerID == userID {
			delete(s.exchanges, id)
		}
	}
	for id, r := range s.reviews {
		if r.Author.ID == userID {
			delete(s.reviews, id)
		}
	}
	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
		}
	}
}

func (s *state) deleteBook(bookID int64) {
	delete(s.books, bookID)
	for id, e := range s.exchanges {
		if e.BookID == bookID {
			delete(s.exchanges, id)
		}
	}
	for id, r := range s.reviews {
		if r.BookID == bookID {
			delete(s.reviews, id)
		}
	}
}

func sortByID[T any](items []T, id func(T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}

func int64Ptr(v int64) *int64 { return &v }
