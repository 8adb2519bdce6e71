package store

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/bremen-jose-oliveira/mylibrary/internal/validation"
	"github.com/sirupsen/logrus"
)

const friendshipsPath = "/api/friendships"

// FriendStore caches friendships and incoming friend requests.
type FriendStore struct {
	Collection[entities.Friendship]

	pending Collection[entities.Friendship]
	api     API
	log     logrus.FieldLogger
}

func NewFriendStore(client API, log logrus.FieldLogger) *FriendStore {
	return &FriendStore{
		api: client,
		log: logging.OrDiscard(log).WithField("store", "friends"),
	}
}

func (s *FriendStore) Refresh(ctx context.Context) {
	s.refresh(ctx, s.log, func(ctx context.Context) ([]entities.Friendship, error) {
		return fetchList[entities.Friendship](ctx, s.api, friendshipsPath)
	})
}

// RefreshPending reloads friend requests awaiting the current user's answer.
func (s *FriendStore) RefreshPending(ctx context.Context) {
	s.pending.refresh(ctx, s.log.WithField("view", "pending"), func(ctx context.Context) ([]entities.Friendship, error) {
		return fetchList[entities.Friendship](ctx, s.api, friendshipsPath+"/pending")
	})
}

// Pending returns the cached incoming requests.
func (s *FriendStore) Pending() []entities.Friendship {
	return s.pending.Items()
}

// SendRequest asks another user to become a friend.
func (s *FriendStore) SendRequest(ctx context.Context, email string) error {
	input := entities.FriendRequestInput{FriendEmail: email}
	if err := validation.Struct(input); err != nil {
		return err
	}

	if err := s.api.Do(ctx, http.MethodPost, friendshipsPath, input, nil); err != nil {
		return fmt.Errorf("send friend request to %s: %w", email, err)
	}

	s.Refresh(ctx)
	return nil
}

// Accept answers a pending request; the new friend shows up after refresh.
func (s *FriendStore) Accept(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d/accept", friendshipsPath, id), nil, nil); err != nil {
		return fmt.Errorf("accept friend request %d: %w", id, err)
	}

	s.pending.remove(id)
	s.Refresh(ctx)
	return nil
}

// Reject declines a pending request.
func (s *FriendStore) Reject(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodPut, fmt.Sprintf("%s/%d/reject", friendshipsPath, id), nil, nil); err != nil {
		return fmt.Errorf("reject friend request %d: %w", id, err)
	}

	s.pending.remove(id)
	return nil
}

// Remove deletes the relationship entirely.
func (s *FriendStore) Remove(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", friendshipsPath, id), nil, nil); err != nil {
		return fmt.Errorf("remove friendship %d: %w", id, err)
	}
	s.remove(id)
	return nil
}

func (s *FriendStore) Reset() {
	s.reset()
	s.pending.reset()
}
