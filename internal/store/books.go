package store

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/validation"
	"github.com/sirupsen/logrus"
)

const booksPath = "/api/books"

// CoverEnricher backfills missing covers. It must not fail.
type CoverEnricher interface {
	EnrichBooks(ctx context.Context, books []entities.Book) []entities.Book
}

// BookStore caches the current user's books.
type BookStore struct {
	Collection[entities.Book]

	api      API
	enricher CoverEnricher
	log      logrus.FieldLogger
}

// NewBookStore creates a BookStore. enricher may be nil.
func NewBookStore(client API, enricher CoverEnricher, log logrus.FieldLogger) *BookStore {
	return &BookStore{
		api:      client,
		enricher: enricher,
		log:      logging.OrDiscard(log).WithField("store", "books"),
	}
}

// Refresh reloads "my books", backfilling missing covers before publishing.
func (s *BookStore) Refresh(ctx context.Context) {
	s.refresh(ctx, s.log, func(ctx context.Context) ([]entities.Book, error) {
		books, err := fetchList[entities.Book](ctx, s.api, booksPath+"/mine")
		if err != nil {
			return nil, err
		}
		return s.enrich(ctx, books), nil
	})
}

func (s *BookStore) enrich(ctx context.Context, books []entities.Book) []entities.Book {
	if s.enricher == nil {
		return books
	}
	return s.enricher.EnrichBooks(ctx, books)
}

// Get fetches a single book without touching the cache.
func (s *BookStore) Get(ctx context.Context, id int64) (*entities.Book, error) {
	book, err := fetchOne[entities.Book](ctx, s.api, http.MethodGet, fmt.Sprintf("%s/%d", booksPath, id), nil)
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	enriched := s.enrich(ctx, []entities.Book{book})
	return &enriched[0], nil
}

// ListByOwner returns another user's shelf, e.g. to pick a book to borrow.
func (s *BookStore) ListByOwner(ctx context.Context, email string) ([]entities.Book, error) {
	if email == "" {
		return nil, validation.New("email is required")
	}
	books, err := fetchList[entities.Book](ctx, s.api, booksPath+"/user/"+url.PathEscape(email))
	if err != nil {
		return nil, fmt.Errorf("list books for %s: %w", email, err)
	}
	return s.enrich(ctx, books), nil
}

// Create adds a book and then refreshes from the server.
func (s *BookStore) Create(ctx context.Context, input entities.BookInput) (*entities.Book, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	book, err := fetchOne[entities.Book](ctx, s.api, http.MethodPost, booksPath, input)
	if err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.Refresh(ctx)
	return &book, nil
}

// Update replaces a book's fields and then refreshes from the server.
func (s *BookStore) Update(ctx context.Context, id int64, input entities.BookInput) error {
	if err := validation.Struct(input); err != nil {
		return err
	}

	if err := s.api.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", booksPath, id), input, nil); err != nil {
		return fmt.Errorf("update book %d: %w", id, err)
	}

	s.Refresh(ctx)
	return nil
}

// UpdateReadingStatus changes one field, applied locally on success.
func (s *BookStore) UpdateReadingStatus(ctx context.Context, id int64, status entities.ReadingStatus) error {
	if !status.Valid() {
		return validation.New(fmt.Sprintf("readingStatus must be one of: %s %s %s",
			entities.ReadingStatusNotRead, entities.ReadingStatusReading, entities.ReadingStatusRead))
	}

	body := map[string]entities.ReadingStatus{"readingStatus": status}
	if err := s.api.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d/reading-status", booksPath, id), body, nil); err != nil {
		return fmt.Errorf("update reading status of book %d: %w", id, err)
	}

	s.update(id, func(b entities.Book) entities.Book {
		b.ReadingStatus = status
		return b
	})
	return nil
}

// Delete removes a book on the server and then from the cache.
func (s *BookStore) Delete(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", booksPath, id), nil, nil); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	s.remove(id)
	return nil
}

// Reset clears the cache, e.g. on logout.
func (s *BookStore) Reset() {
	s.reset()
}
