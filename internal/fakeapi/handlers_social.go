package fakeapi

import (
	"fmt"
	"net/http"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/gin-gonic/gin"
)

// --- Friendships ---

func (s *Server) listFriendships(c *gin.Context) {
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	out := []entities.Friendship{}
	for _, f := range s.state.friendships {
		involved := f.RequesterID == me || f.AddresseeID == me
		if !involved || f.Status == entities.FriendshipStatusRejected {
			continue
		}
		// Incoming requests are listed under /pending only.
		if f.Status == entities.FriendshipStatusPending && f.AddresseeID == me {
			continue
		}
		out = append(out, s.state.friendshipView(f, me))
	}
	sortByID(out, func(f entities.Friendship) int64 { return f.ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) listPendingFriendships(c *gin.Context) {
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	out := []entities.Friendship{}
	for _, f := range s.state.friendships {
		if f.AddresseeID == me && f.Status == entities.FriendshipStatusPending {
			out = append(out, s.state.friendshipView(f, me))
		}
	}
	sortByID(out, func(f entities.Friendship) int64 { return f.ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) createFriendship(c *gin.Context) {
	var req struct {
		FriendEmail string `json:"friendEmail" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "friendEmail is required")
		return
	}
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	friend := s.state.userByEmail(req.FriendEmail)
	if friend == nil {
		respondNotFound(c, "User")
		return
	}
	if friend.ID == me {
		respondBadRequest(c, "You cannot befriend yourself")
		return
	}
	if existing := s.state.friendshipBetween(me, friend.ID); existing != nil && existing.Status != entities.FriendshipStatusRejected {
		respondError(c, http.StatusConflict, "Friend request already exists")
		return
	}

	f := &friendship{
		ID:          s.state.id(),
		RequesterID: me,
		AddresseeID: friend.ID,
		Status:      entities.FriendshipStatusPending,
		CreatedAt:   s.state.now(),
	}
	s.state.friendships[f.ID] = f

	requester := s.state.users[me]
	s.state.notify(friend.ID, entities.NotificationFriendRequest, "New friend request",
		fmt.Sprintf("%s wants to be your friend", requester.Username),
		func(n *entities.Notification) {
			n.RelatedID = int64Ptr(f.ID)
			n.RelatedEmail = requester.Email
		})

	c.JSON(http.StatusCreated, s.state.friendshipView(f, me))
}

func (s *Server) acceptFriendship(c *gin.Context) {
	s.answerFriendship(c, entities.FriendshipStatusAccepted)
}

func (s *Server) rejectFriendship(c *gin.Context) {
	s.answerFriendship(c, entities.FriendshipStatusRejected)
}

func (s *Server) answerFriendship(c *gin.Context, status entities.FriendshipStatus) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	f := s.state.friendships[id]
	if f == nil || f.AddresseeID != me {
		respondNotFound(c, "Friend request")
		return
	}
	if f.Status != entities.FriendshipStatusPending {
		respondBadRequest(c, "Friend request already answered")
		return
	}
	f.Status = status

	if status == entities.FriendshipStatusAccepted {
		addressee := s.state.users[me]
		s.state.notify(f.RequesterID, entities.NotificationFriendAccepted, "Friend request accepted",
			fmt.Sprintf("%s accepted your friend request", addressee.Username),
			func(n *entities.Notification) {
				n.RelatedID = int64Ptr(f.ID)
				n.RelatedEmail = addressee.Email
			})
	}
	c.JSON(http.StatusOK, s.state.friendshipView(f, me))
}

func (s *Server) deleteFriendship(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	f := s.state.friendships[id]
	if f == nil || (f.RequesterID != me && f.AddresseeID != me) {
		respondNotFound(c, "Friendship")
		return
	}
	delete(s.state.friendships, id)
	c.Status(http.StatusNoContent)
}

// --- Exchanges ---

var exchangeNotifications = map[entities.ExchangeStatus]entities.NotificationType{
	entities.ExchangeStatusAccepted: entities.NotificationExchangeAccepted,
	entities.ExchangeStatusRejected: entities.NotificationExchangeRejected,
	entities.ExchangeStatusReturned: entities.NotificationExchangeReturned,
}

func (s *Server) listExchanges(c *gin.Context) {
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	out := []entities.Exchange{}
	for _, e := range s.state.exchanges {
		b := s.state.books[e.BookID]
		if e.BorrowerID == me || (b != nil && b.OwnerID == me) {
			out = append(out, s.state.exchangeView(e))
		}
	}
	sortByID(out, func(e entities.Exchange) int64 { return e.ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) createExchange(c *gin.Context) {
	var req struct {
		BookID int64 `json:"bookId" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "bookId is required")
		return
	}
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	b := s.state.books[req.BookID]
	if b == nil {
		respondNotFound(c, "Book")
		return
	}
	if b.OwnerID == me {
		respondBadRequest(c, "You cannot borrow your own book")
		return
	}
	if b.ExchangeStatus == exchangeLent {
		respondError(c, http.StatusConflict, "Book is currently lent")
		return
	}

	e := &exchange{
		ID:         s.state.id(),
		BookID:     b.ID,
		BorrowerID: me,
		Status:     entities.ExchangeStatusRequested,
		Date:       s.state.now(),
	}
	s.state.exchanges[e.ID] = e

	borrower := s.state.users[me]
	s.state.notify(b.OwnerID, entities.NotificationExchangeRequested, "Exchange requested",
		fmt.Sprintf("%s wants to borrow %q", borrower.Username, b.Title),
		func(n *entities.Notification) {
			n.RelatedID = int64Ptr(e.ID)
			n.RelatedEmail = borrower.Email
			n.RelatedBookID = int64Ptr(b.ID)
		})

	c.JSON(http.StatusCreated, s.state.exchangeView(e))
}

func (s *Server) updateExchangeStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status entities.ExchangeStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		respondBadRequest(c, "invalid status")
		return
	}
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	e := s.state.exchanges[id]
	if e == nil {
		respondNotFound(c, "Exchange")
		return
	}
	b := s.state.books[e.BookID]
	isOwner := b != nil && b.OwnerID == me
	isBorrower := e.BorrowerID == me
	if !isOwner && !isBorrower {
		respondNotFound(c, "Exchange")
		return
	}
	if !entities.CanTransition(e.Status, req.Status) {
		respondBadRequest(c, fmt.Sprintf("Cannot change exchange from %s to %s", e.Status, req.Status))
		return
	}
	if req.Status != entities.ExchangeStatusReturned && !isOwner {
		respondForbidden(c)
		return
	}

	e.Status = req.Status
	switch req.Status {
	case entities.ExchangeStatusAccepted:
		b.ExchangeStatus = exchangeLent
	case entities.ExchangeStatusReturned:
		b.ExchangeStatus = exchangeAvailable
	}

	// Tell the other party.
	recipient := e.BorrowerID
	if isBorrower {
		recipient = b.OwnerID
	}
	s.state.notify(recipient, exchangeNotifications[req.Status], "Exchange "+string(req.Status),
		fmt.Sprintf("The exchange of %q is now %s", b.Title, req.Status),
		func(n *entities.Notification) {
			n.RelatedID = int64Ptr(e.ID)
			n.RelatedBookID = int64Ptr(b.ID)
		})

	c.JSON(http.StatusOK, s.state.exchangeView(e))
}

func (s *Server) deleteExchange(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	e := s.state.exchanges[id]
	if e == nil {
		respondNotFound(c, "Exchange")
		return
	}
	b := s.state.books[e.BookID]
	if e.BorrowerID != me && (b == nil || b.OwnerID != me) {
		respondNotFound(c, "Exchange")
		return
	}
	if e.Status == entities.ExchangeStatusAccepted && b != nil {
		b.ExchangeStatus = exchangeAvailable
	}
	delete(s.state.exchanges, id)
	c.Status(http.StatusNoContent)
}

// --- Reviews ---

type reviewRequest struct {
	BookID  int64  `json:"bookId" binding:"required,gt=0"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=2000"`
}

func (s *Server) listReviews(c *gin.Context) {
	bookID, ok := paramID(c, "bookId")
	if !ok {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if s.state.books[bookID] == nil {
		respondNotFound(c, "Book")
		return
	}
	c.JSON(http.StatusOK, s.state.reviewsFor(bookID))
}

func (s *Server) createReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "bookId and a rating between 1 and 5 are required")
		return
	}
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	b := s.state.books[req.BookID]
	if b == nil {
		respondNotFound(c, "Book")
		return
	}

	now := s.state.now()
	author := s.state.users[me]
	r := &entities.Review{
		ID:        s.state.id(),
		BookID:    b.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
		Author:    author.summary(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.state.reviews[r.ID] = r

	if b.OwnerID != me {
		s.state.notify(b.OwnerID, entities.NotificationNewReview, "New review",
			fmt.Sprintf("%s rated %q %d/5", author.Username, b.Title, r.Rating),
			func(n *entities.Notification) {
				n.RelatedID = int64Ptr(r.ID)
				n.RelatedEmail = author.Email
				n.RelatedBookID = int64Ptr(b.ID)
			})
	}
	c.JSON(http.StatusCreated, *r)
}

func (s *Server) updateReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "rating must be between 1 and 5")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	r, ok := s.authoredReview(c, id)
	if !ok {
		return
	}
	r.Rating = req.Rating
	r.Comment = req.Comment
	r.UpdatedAt = s.state.now()
	c.JSON(http.StatusOK, *r)
}

func (s *Server) deleteReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, ok := s.authoredReview(c, id); !ok {
		return
	}
	delete(s.state.reviews, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) authoredReview(c *gin.Context, id int64) (*entities.Review, bool) {
	r := s.state.reviews[id]
	if r == nil {
		respondNotFound(c, "Review")
		return nil, false
	}
	if r.Author.ID != currentUserID(c) {
		respondForbidden(c)
		return nil, false
	}
	return r, true
}

// --- Notifications ---

func (s *Server) listNotifications(c *gin.Context) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.notificationsFor(currentUserID(c)))
}

func (s *Server) markNotificationRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	n := s.state.notifications[id]
	if n == nil || n.UserID != currentUserID(c) {
		respondNotFound(c, "Notification")
		return
	}
	n.Read = true
	c.JSON(http.StatusOK, n.Notification)
}

func (s *Server) markAllNotificationsRead(c *gin.Context) {
	me := currentUserID(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for _, n := range s.state.notifications {
		if n.UserID == me {
			n.Read = true
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteNotification(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	n := s.state.notifications[id]
	if n == nil || n.UserID != currentUserID(c) {
		respondNotFound(c, "Notification")
		return
	}
	delete(s.state.notifications, id)
	c.Status(http.StatusNoContent)
}
