package store

import (
	"context"
	"net/http"
	"testing"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func friendship(id int64, email string, status entities.FriendshipStatus) entities.Friendship {
	return entities.Friendship{ID: id, FriendEmail: email, FriendshipStatus: status}
}

func TestFriendStore_AcceptMovesRequest(t *testing.T) {
	fake := newFakeAPI()
	fake.respond(http.MethodGet, "/api/friendships/pending", []entities.Friendship{
		friendship(4, "bob@example.com", entities.FriendshipStatusPending),
		friendship(5, "carol@example.com", entities.FriendshipStatusPending),
	})
	fake.respond(http.MethodPut, "/api/friendships/4/accept", nil)
	fake.respond(http.MethodGet, "/api/friendships", []entities.Friendship{
		friendship(4, "bob@example.com", entities.FriendshipStatusAccepted),
	})

	s := NewFriendStore(fake, nil)
	s.RefreshPending(context.Background())
	require.Len(t, s.Pending(), 2)

	require.NoError(t, s.Accept(context.Background(), 4))

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, int64(5), pending[0].ID)

	friends := s.Items()
	require.Len(t, friends, 1)
	assert.Equal(t, entities.FriendshipStatusAccepted, friends[0].FriendshipStatus)
}

func TestFriendStore_RejectKeepsPendingOnFailure(t *testing.T) {
	fake := newFakeAPI()
	fake.respond(http.MethodGet, "/api/friendships/pending", []entities.Friendship{
		friendship(4, "bob@example.com", entities.FriendshipStatusPending),
	})
	fake.fail(http.MethodPut, "/api/friendships/4/reject", serverError(http.MethodPut, "/api/friendships/4/reject"))

	s := NewFriendStore(fake, nil)
	s.RefreshPending(context.Background())

	err := s.Reject(context.Background(), 4)
	assert.ErrorIs(t, err, api.ErrRequestFailed)
	assert.Len(t, s.Pending(), 1)

	fake.respond(http.MethodPut, "/api/friendships/4/reject", nil)
	require.NoError(t, s.Reject(context.Background(), 4))
	assert.Empty(t, s.Pending())
}

func TestFriendStore_SendRequest(t *testing.T) {
	fake := newFakeAPI()
	fake.respond(http.MethodPost, "/api/friendships", nil)
	fake.respond(http.MethodGet, "/api/friendships", []entities.Friendship{
		friendship(9, "dave@example.com", entities.FriendshipStatusPending),
	})

	s := NewFriendStore(fake, nil)

	err := s.SendRequest(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, 0, fake.count(http.MethodPost, "/api/friendships"))

	require.NoError(t, s.SendRequest(context.Background(), "dave@example.com"))
	assert.Equal(t, 1, s.Len())
	body, ok := fake.calls[0].Body.(entities.FriendRequestInput)
	require.True(t, ok)
	assert.Equal(t, "dave@example.com", body.FriendEmail)
}

func TestFriendStore_Remove(t *testing.T) {
	fake := newFakeAPI()
	fake.respond(http.MethodGet, "/api/friendships", []entities.Friendship{
		friendship(1, "a@example.com", entities.FriendshipStatusAccepted),
		friendship(2, "b@example.com", entities.FriendshipStatusAccepted),
	})
	fake.respond(http.MethodDelete, "/api/friendships/1", nil)

	s := NewFriendStore(fake, nil)
	s.Refresh(context.Background())

	require.NoError(t, s.Remove(context.Background(), 1))
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
}

func TestFriendStore_RemoveKeepsOrderOfOthers(t *testing.T) {
	fake := newFakeAPI()
	fake.respond(http.MethodGet, "/api/friendships", []entities.Friendship{
		friendship(3, "a@example.com", entities.FriendshipStatusAccepted),
		friendship(7, "b@example.com", entities.FriendshipStatusAccepted),
		friendship(9, "c@example.com", entities.FriendshipStatusAccepted),
	})
	fake.respond(http.MethodDelete, "/api/friendships/7", nil)

	s := NewFriendStore(fake, nil)
	s.Refresh(context.Background())

	require.NoError(t, s.Remove(context.Background(), 7))

	var ids []int64
	for _, f := range s.Items() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []int64{3, 9}, ids)
}

func TestFriendStore_Reset(t *testing.T) {
	fake := newFakeAPI()
	fake.respond(http.MethodGet, "/api/friendships", []entities.Friendship{
		friendship(1, "a@example.com", entities.FriendshipStatusAccepted),
	})
	fake.respond(http.MethodGet, "/api/friendships/pending", []entities.Friendship{
		friendship(2, "b@example.com", entities.FriendshipStatusPending),
	})

	s := NewFriendStore(fake, nil)
	s.Refresh(context.Background())
	s.RefreshPending(context.Background())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Pending())
}
