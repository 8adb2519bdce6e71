package entities

import (
	"fmt"
	"strings"
	"time"
)

type ExchangeStatus string

const (
	ExchangeStatusRequested ExchangeStatus = "REQUESTED"
	ExchangeStatusAccepted  ExchangeStatus = "ACCEPTED"
	ExchangeStatusRejected  ExchangeStatus = "REJECTED"
	ExchangeStatusReturned  ExchangeStatus = "RETURNED"
)

func (s ExchangeStatus) Valid() bool {
	switch s {
	case ExchangeStatusRequested, ExchangeStatusAccepted, ExchangeStatusRejected, ExchangeStatusReturned:
		return true
	}
	return false
}

// Terminal states accept no further transitions.
func (s ExchangeStatus) Terminal() bool {
	return s == ExchangeStatusRejected || s == ExchangeStatusReturned
}

// exchangeTransitions is the client's assumption of the server's rules. The
// server is authoritative; this table only gates which controls are offered.
var exchangeTransitions = map[ExchangeStatus][]ExchangeStatus{
	ExchangeStatusRequested: {ExchangeStatusAccepted, ExchangeStatusRejected},
	ExchangeStatusAccepted:  {ExchangeStatusReturned},
}

func CanTransition(from, to ExchangeStatus) bool {
	for _, next := range exchangeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Exchange struct {
	ID           int64          `json:"id"`
	Status       ExchangeStatus `json:"status"`
	Book         Book           `json:"book"`
	Borrower     UserSummary    `json:"borrower"`
	ExchangeDate time.Time      `json:"exchangeDate"`
}

func (e Exchange) Identity() int64 { return e.ID }

func (e Exchange) Validate() error {
	if e.ID == 0 {
		return fmt.Errorf("exchange: missing id")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("exchange %d: unknown status %q", e.ID, e.Status)
	}
	if e.Book.ID == 0 {
		return fmt.Errorf("exchange %d: missing book", e.ID)
	}
	return nil
}

// OwnedBy reports whether the exchanged book belongs to the given user.
func (e Exchange) OwnedBy(u *UserSummary) bool {
	return u != nil && e.Book.OwnerUsername != "" && strings.EqualFold(e.Book.OwnerUsername, u.Username)
}

// BorrowedBy reports whether the given user requested the exchange.
func (e Exchange) BorrowedBy(u *UserSummary) bool {
	if u == nil {
		return false
	}
	if e.Borrower.ID != 0 && e.Borrower.ID == u.ID {
		return true
	}
	return e.Borrower.Email != "" && strings.EqualFold(e.Borrower.Email, u.Email)
}

// OwnerActionsAllowed reports whether accept/reject controls should be shown
// to the given user.
func (e Exchange) OwnerActionsAllowed(u *UserSummary) bool {
	return e.OwnedBy(u) && e.Status == ExchangeStatusRequested
}

// ReturnAllowed reports whether either party may mark the exchange returned.
func (e Exchange) ReturnAllowed(u *UserSummary) bool {
	return (e.OwnedBy(u) || e.BorrowedBy(u)) && CanTransition(e.Status, ExchangeStatusReturned)
}

type ExchangeRequestInput struct {
	BookID int64 `json:"bookId" validate:"required,gt=0"`
}

type ExchangeStatusInput struct {
	Status ExchangeStatus `json:"status" validate:"required,oneof=ACCEPTED REJECTED RETURNED"`
}
