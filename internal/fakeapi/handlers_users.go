package fakeapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type googleRequest struct {
	IDToken  string `json:"idToken" binding:"required"`
	ClientID string `json:"clientId"`
}

type profileRequest struct {
	Username string `json:"username" binding:"omitempty,min=3,max=50"`
	Email    string `json:"email" binding:"omitempty,email"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "email and password are required")
		return
	}

	s.state.mu.Lock()
	u := s.state.userByEmail(req.Email)
	s.state.mu.Unlock()

	if u == nil || checkPassword(req.Password, u.PasswordHash) != nil {
		respondBadRequest(c, "Invalid email or password")
		return
	}
	s.respondToken(c, http.StatusOK, u)
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username, a valid email and a password of at least 6 characters are required")
		return
	}

	hash, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	s.state.mu.Lock()
	if s.state.userByEmail(req.Email) != nil {
		s.state.mu.Unlock()
		respondError(c, http.StatusConflict, "Email already registered")
		return
	}
	u := &user{ID: s.state.id(), Username: req.Username, Email: req.Email, PasswordHash: hash}
	s.state.users[u.ID] = u
	s.state.mu.Unlock()

	s.log.WithField("user", u.Email).Info("user registered")
	s.respondToken(c, http.StatusCreated, u)
}

// googleLogin trusts the ID token's email claim. A real backend verifies
// the token with Google; the fake only needs an identity.
func (s *Server) googleLogin(c *gin.Context) {
	var req googleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "idToken is required")
		return
	}

	email := req.IDToken
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(req.IDToken, claims); err == nil {
		if v, ok := claims["email"].(string); ok {
			email = v
		}
	}
	if !strings.Contains(email, "@") {
		respondError(c, http.StatusUnauthorized, "Invalid Google token")
		return
	}

	s.state.mu.Lock()
	u := s.state.userByEmail(email)
	if u == nil {
		u = &user{ID: s.state.id(), Username: strings.SplitN(email, "@", 2)[0], Email: email}
		s.state.users[u.ID] = u
	}
	s.state.mu.Unlock()

	s.respondToken(c, http.StatusOK, u)
}

func (s *Server) respondToken(c *gin.Context, status int, u *user) {
	token, err := s.issueToken(u)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to issue token")
		return
	}
	c.JSON(status, tokenResponse{Token: token})
}

func (s *Server) searchUser(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		respondBadRequest(c, "email is required")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	u := s.state.userByEmail(email)
	if u == nil {
		respondNotFound(c, "User")
		return
	}
	c.JSON(http.StatusOK, u.summary())
}

func (s *Server) updateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if id != currentUserID(c) {
		respondForbidden(c)
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid profile")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	u := s.state.users[id]
	if req.Email != "" && !strings.EqualFold(req.Email, u.Email) {
		if s.state.userByEmail(req.Email) != nil {
			respondError(c, http.StatusConflict, "Email already registered")
			return
		}
		u.Email = req.Email
	}
	if req.Username != "" {
		u.Username = req.Username
	}
	c.JSON(http.StatusOK, u.summary())
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if id != currentUserID(c) {
		respondForbidden(c)
		return
	}

	s.state.mu.Lock()
	s.state.deleteUser(id)
	s.state.mu.Unlock()
	c.Status(http.StatusNoContent)
}
