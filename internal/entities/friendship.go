package entities

import (
	"fmt"
	"time"
)

type FriendshipStatus string

const (
	FriendshipStatusPending  FriendshipStatus = "PENDING"
	FriendshipStatusAccepted FriendshipStatus = "ACCEPTED"
	FriendshipStatusRejected FriendshipStatus = "REJECTED"
)

func (s FriendshipStatus) Valid() bool {
	switch s {
	case FriendshipStatusPending, FriendshipStatusAccepted, FriendshipStatusRejected:
		return true
	}
	return false
}

type Friendship struct {
	ID               int64            `json:"id"`
	FriendEmail      string           `json:"friendEmail"`
	FriendUsername   string           `json:"friendUsername,omitempty"`
	FriendshipStatus FriendshipStatus `json:"friendshipStatus"`
	CreatedAt        time.Time        `json:"createdAt"`
}

func (f Friendship) Identity() int64 { return f.ID }

func (f Friendship) Validate() error {
	if f.ID == 0 {
		return fmt.Errorf("friendship: missing id")
	}
	if !f.FriendshipStatus.Valid() {
		return fmt.Errorf("friendship %d: unknown status %q", f.ID, f.FriendshipStatus)
	}
	return nil
}

type FriendRequestInput struct {
	FriendEmail string `json:"friendEmail" validate:"required,email"`
}
