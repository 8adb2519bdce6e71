package entities

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationFriendRequest     NotificationType = "FRIEND_REQUEST"
	NotificationFriendAccepted    NotificationType = "FRIEND_ACCEPTED"
	NotificationExchangeRequested NotificationType = "EXCHANGE_REQUESTED"
	NotificationExchangeAccepted  NotificationType = "EXCHANGE_ACCEPTED"
	NotificationExchangeRejected  NotificationType = "EXCHANGE_REJECTED"
	NotificationExchangeReturned  NotificationType = "EXCHANGE_RETURNED"
	NotificationNewReview         NotificationType = "NEW_REVIEW"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationFriendRequest, NotificationFriendAccepted,
		NotificationExchangeRequested, NotificationExchangeAccepted,
		NotificationExchangeRejected, NotificationExchangeReturned,
		NotificationNewReview:
		return true
	}
	return false
}

type Notification struct {
	ID            int64            `json:"id"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	Read          bool             `json:"read"`
	CreatedAt     time.Time        `json:"createdAt"`
	RelatedID     *int64           `json:"relatedId,omitempty"`
	RelatedEmail  string           `json:"relatedEmail,omitempty"`
	RelatedBookID *int64           `json:"relatedBookId,omitempty"`
}

func (n Notification) Identity() int64 { return n.ID }

func (n Notification) Validate() error {
	if n.ID == 0 {
		return fmt.Errorf("notification: missing id")
	}
	if !n.Type.Valid() {
		return fmt.Errorf("notification %d: unknown type %q", n.ID, n.Type)
	}
	return nil
}
