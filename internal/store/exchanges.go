package store

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/validation"
	"github.com/sirupsen/logrus"
)

const exchangesPath = "/api/exchanges"

// ExchangeStore caches exchanges involving the current user.
//
// The status transitions are enforced by the server. The store only
// reflects what the server returns.
type ExchangeStore struct {
	Collection[entities.Exchange]

	api API
	log logrus.FieldLogger

	userMu sync.RWMutex
	user   *entities.UserSummary
}

func NewExchangeStore(client API, log logrus.FieldLogger) *ExchangeStore {
	return &ExchangeStore{
		api: client,
		log: logging.OrDiscard(log).WithField("store", "exchanges"),
	}
}

// SetCurrentUser is the resolver subscription hook. A nil user hides every
// owner-scoped view.
func (s *ExchangeStore) SetCurrentUser(u *entities.UserSummary) {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	if u == nil {
		s.user = nil
		return
	}
	copied := *u
	s.user = &copied
}

func (s *ExchangeStore) currentUser() *entities.UserSummary {
	s.userMu.RLock()
	defer s.userMu.RUnlock()
	return s.user
}

func (s *ExchangeStore) Refresh(ctx context.Context) {
	s.refresh(ctx, s.log, func(ctx context.Context) ([]entities.Exchange, error) {
		return fetchList[entities.Exchange](ctx, s.api, exchangesPath)
	})
}

// Incoming lists exchanges for books the current user owns.
func (s *ExchangeStore) Incoming() []entities.Exchange {
	u := s.currentUser()
	return s.filter(func(e entities.Exchange) bool { return e.OwnedBy(u) })
}

// Outgoing lists exchanges the current user requested.
func (s *ExchangeStore) Outgoing() []entities.Exchange {
	u := s.currentUser()
	return s.filter(func(e entities.Exchange) bool { return e.BorrowedBy(u) })
}

// CanAct reports whether the current user is offered owner controls for the
// exchange.
func (s *ExchangeStore) CanAct(id int64) bool {
	ex, ok := s.Find(id)
	return ok && ex.OwnerActionsAllowed(s.currentUser())
}

func (s *ExchangeStore) filter(keep func(entities.Exchange) bool) []entities.Exchange {
	var out []entities.Exchange
	for _, ex := range s.Items() {
		if keep(ex) {
			out = append(out, ex)
		}
	}
	return out
}

// Request asks to borrow a book.
func (s *ExchangeStore) Request(ctx context.Context, bookID int64) (*entities.Exchange, error) {
	input := entities.ExchangeRequestInput{BookID: bookID}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	ex, err := fetchOne[entities.Exchange](ctx, s.api, http.MethodPost, exchangesPath, input)
	if err != nil {
		return nil, fmt.Errorf("request exchange for book %d: %w", bookID, err)
	}

	s.Refresh(ctx)
	return &ex, nil
}

func (s *ExchangeStore) Accept(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, entities.ExchangeStatusAccepted)
}

func (s *ExchangeStore) Reject(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, entities.ExchangeStatusRejected)
}

func (s *ExchangeStore) MarkReturned(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, entities.ExchangeStatusReturned)
}

func (s *ExchangeStore) setStatus(ctx context.Context, id int64, status entities.ExchangeStatus) error {
	input := entities.ExchangeStatusInput{Status: status}
	if err := s.api.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d/status", exchangesPath, id), input, nil); err != nil {
		return fmt.Errorf("set exchange %d to %s: %w", id, status, err)
	}

	s.Refresh(ctx)
	return nil
}

func (s *ExchangeStore) Delete(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", exchangesPath, id), nil, nil); err != nil {
		return fmt.Errorf("delete exchange %d: %w", id, err)
	}
	s.remove(id)
	return nil
}

func (s *ExchangeStore) Reset() {
	s.reset()
	s.SetCurrentUser(nil)
}
