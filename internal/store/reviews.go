package store

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/validation"
	"github.com/sirupsen/logrus"
)

const reviewsPath = "/api/reviews"

// ReviewStore caches the reviews of one book at a time.
type ReviewStore struct {
	Collection[entities.Review]

	api    API
	log    logrus.FieldLogger
	bookID atomic.Int64
}

func NewReviewStore(client API, log logrus.FieldLogger) *ReviewStore {
	return &ReviewStore{
		api: client,
		log: logging.OrDiscard(log).WithField("store", "reviews"),
	}
}

// BookID is the book whose reviews were last requested.
func (s *ReviewStore) BookID() int64 {
	return s.bookID.Load()
}

// FetchForBook replaces the cache with the reviews of bookID.
func (s *ReviewStore) FetchForBook(ctx context.Context, bookID int64) {
	s.bookID.Store(bookID)
	s.refresh(ctx, s.log.WithField("book_id", bookID), func(ctx context.Context) ([]entities.Review, error) {
		return fetchList[entities.Review](ctx, s.api, fmt.Sprintf("%s/book/%d", reviewsPath, bookID))
	})
}

// Create posts a review, then re-fetches the reviews of its book.
func (s *ReviewStore) Create(ctx context.Context, input entities.ReviewInput) (*entities.Review, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	review, err := fetchOne[entities.Review](ctx, s.api, http.MethodPost, reviewsPath, input)
	if err != nil {
		return nil, fmt.Errorf("create review for book %d: %w", input.BookID, err)
	}

	s.FetchForBook(ctx, input.BookID)
	return &review, nil
}

func (s *ReviewStore) Update(ctx context.Context, id int64, input entities.ReviewInput) error {
	if err := validation.Struct(input); err != nil {
		return err
	}

	if err := s.api.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d", reviewsPath, id), input, nil); err != nil {
		return fmt.Errorf("update review %d: %w", id, err)
	}

	s.FetchForBook(ctx, input.BookID)
	return nil
}

func (s *ReviewStore) Delete(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", reviewsPath, id), nil, nil); err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	s.remove(id)
	return nil
}

// AverageRating of the cached reviews; 0 when there are none.
func (s *ReviewStore) AverageRating() float64 {
	reviews := s.Items()
	if len(reviews) == 0 {
		return 0
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return float64(total) / float64(len(reviews))
}

func (s *ReviewStore) Reset() {
	s.reset()
	s.bookID.Store(0)
}
