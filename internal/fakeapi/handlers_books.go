package fakeapi

import (
	"net/http"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/gin-gonic/gin"
)

type bookRequest struct {
	Title         string                 `json:"title" binding:"required"`
	Author        string                 `json:"author" binding:"required"`
	Year          int                    `json:"year"`
	Publisher     string                 `json:"publisher"`
	ISBN          string                 `json:"isbn"`
	Cover         string                 `json:"cover"`
	ReadingStatus entities.ReadingStatus `json:"readingStatus"`
}

func (r bookRequest) apply(b *entities.Book) {
	b.Title = r.Title
	b.Author = r.Author
	b.Year = r.Year
	b.Publisher = r.Publisher
	b.ISBN = r.ISBN
	b.Cover = nil
	if r.Cover != "" {
		b.Cover = entities.StringPtr(r.Cover)
	}
	if r.ReadingStatus != "" {
		b.ReadingStatus = r.ReadingStatus
	}
}

func (s *Server) listMyBooks(c *gin.Context) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	c.JSON(http.StatusOK, s.state.booksOwnedBy(currentUserID(c)))
}

func (s *Server) listBooksByOwner(c *gin.Context) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	owner := s.state.userByEmail(c.Param("email"))
	if owner == nil {
		respondNotFound(c, "User")
		return
	}
	c.JSON(http.StatusOK, s.state.booksOwnedBy(owner.ID))
}

func (s *Server) getBook(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	b := s.state.books[id]
	if b == nil {
		respondNotFound(c, "Book")
		return
	}
	c.JSON(http.StatusOK, s.state.bookView(b))
}

func (s *Server) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}
	if req.ReadingStatus != "" && !req.ReadingStatus.Valid() {
		respondBadRequest(c, "invalid reading status")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	now := s.state.now()
	b := &book{OwnerID: currentUserID(c)}
	b.ID = s.state.id()
	req.apply(&b.Book)
	if b.ReadingStatus == "" {
		b.ReadingStatus = entities.ReadingStatusNotRead
	}
	b.ExchangeStatus = exchangeAvailable
	b.CreatedAt = now
	b.UpdatedAt = now
	s.state.books[b.ID] = b

	c.JSON(http.StatusCreated, s.state.bookView(b))
}

func (s *Server) updateBook(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	b, ok := s.ownedBook(c, id)
	if !ok {
		return
	}
	req.apply(&b.Book)
	b.UpdatedAt = s.state.now()
	c.JSON(http.StatusOK, s.state.bookView(b))
}

func (s *Server) updateReadingStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ReadingStatus entities.ReadingStatus `json:"readingStatus" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.ReadingStatus.Valid() {
		respondBadRequest(c, "invalid reading status")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	b, ok := s.ownedBook(c, id)
	if !ok {
		return
	}
	b.ReadingStatus = req.ReadingStatus
	b.UpdatedAt = s.state.now()
	c.JSON(http.StatusOK, s.state.bookView(b))
}

func (s *Server) deleteBook(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if _, ok := s.ownedBook(c, id); !ok {
		return
	}
	s.state.deleteBook(id)
	c.Status(http.StatusNoContent)
}

// ownedBook fetches a book the caller owns, answering 404/403 otherwise.
// Callers hold the state lock.
func (s *Server) ownedBook(c *gin.Context, id int64) (*book, bool) {
	b := s.state.books[id]
	if b == nil {
		respondNotFound(c, "Book")
		return nil, false
	}
	if b.OwnerID != currentUserID(c) {
		respondForbidden(c)
		return nil, false
	}
	return b, true
}
