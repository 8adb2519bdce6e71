// Package fakeapi is an in-memory implementation of the library backend's
// REST API. It backs end-to-end tests and local development.
package fakeapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Config configures a fake backend.
type Config struct {
	// Secret signs issued tokens. Empty uses a fixed development secret.
	Secret string
	// BcryptCost defaults to bcrypt.MinCost to keep tests fast.
	BcryptCost int
	Logger     logrus.FieldLogger
	// Now overrides the clock.
	Now func() time.Time
}

// Server holds the backend state and its gin router.
type Server struct {
	state      *state
	secret     []byte
	bcryptCost int
	log        logrus.FieldLogger
	router     *gin.Engine
}

func New(cfg Config) *Server {
	if cfg.Secret == "" {
		cfg.Secret = "mylibrary-fake-secret"
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.MinCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		state:      newState(cfg.Now),
		secret:     []byte(cfg.Secret),
		bcryptCost: cfg.BcryptCost,
		log:        logging.OrDiscard(cfg.Logger).WithField("component", "fakeapi"),
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(s.requestLogger())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/api/auth")
	auth.POST("/login", s.login)
	auth.POST("/register", s.register)
	auth.POST("/google", s.googleLogin)

	api := router.Group("/api", s.requireAuth())

	api.GET("/users/search", s.searchUser)
	api.PUT("/users/:id", s.updateUser)
	api.DELETE("/users/:id", s.deleteUser)

	api.GET("/books/mine", s.listMyBooks)
	api.GET("/books/user/:email", s.listBooksByOwner)
	api.GET("/books/:id", s.getBook)
	api.POST("/books", s.createBook)
	api.PUT("/books/:id", s.updateBook)
	api.PUT("/books/:id/reading-status", s.updateReadingStatus)
	api.DELETE("/books/:id", s.deleteBook)

	api.GET("/friendships", s.listFriendships)
	api.GET("/friendships/pending", s.listPendingFriendships)
	api.POST("/friendships", s.createFriendship)
	api.PUT("/friendships/:id/accept", s.acceptFriendship)
	api.PUT("/friendships/:id/reject", s.rejectFriendship)
	api.DELETE("/friendships/:id", s.deleteFriendship)

	api.GET("/exchanges", s.listExchanges)
	api.POST("/exchanges", s.createExchange)
	api.PUT("/exchanges/:id/status", s.updateExchangeStatus)
	api.DELETE("/exchanges/:id", s.deleteExchange)

	api.GET("/reviews/book/:bookId", s.listReviews)
	api.POST("/reviews", s.createReview)
	api.PUT("/reviews/:id", s.updateReview)
	api.DELETE("/reviews/:id", s.deleteReview)

	api.GET("/notifications", s.listNotifications)
	api.PUT("/notifications/read-all", s.markAllNotificationsRead)
	api.PUT("/notifications/:id/read", s.markNotificationRead)
	api.DELETE("/notifications/:id", s.deleteNotification)

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": c.GetHeader("X-Request-ID"),
		}).Debug("request")
	}
}

// --- Response helpers ---

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}

func respondNotFound(c *gin.Context, resource string) {
	respondError(c, http.StatusNotFound, resource+" not found")
}

func respondForbidden(c *gin.Context) {
	respondError(c, http.StatusForbidden, "not allowed")
}

// paramID parses a numeric path parameter, answering 400 on failure.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
