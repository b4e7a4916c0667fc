package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbastos/filegate/internal/errs"
	"github.com/mbastos/filegate/internal/seclog"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	tok, u, p, err := s.auth.LoginWithIP(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, errs.ErrRateLimited) {
			s.sec.Event(c.Request.Context(), seclog.EventLoginBlocked, c.ClientIP(), nil, "email="+req.Email)
		}
		writeErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      tok.AccessToken,
		"expires_at": tok.ExpiresAt,
		"user": gin.H{
			"id":        u.ID,
			"email":     u.Email,
			"full_name": p.FullName,
			"role":      p.Role,
		},
	})
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	id, err := s.auth.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	if err := s.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeErr(c, err)
		return
	}
	// Same answer whether or not the account exists.
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link was sent"})
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and password are required"})
		return
	}
	if err := s.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		writeErr(c, err)
		return
	}
	s.sec.Event(c.Request.Context(), seclog.EventPasswordReset, c.ClientIP(), nil, "password reset completed")
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// validateRole returns the freshly loaded role for the token holder. The
// frontend polls this to pick up role changes without re-login.
func (s *Server) validateRole(c *gin.Context) {
	a := actor(c)
	u, p, err := s.auth.Validate(c.Request.Context(), a.ID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        u.ID,
		"email":     u.Email,
		"full_name": p.FullName,
		"role":      p.Role,
		"active":    p.Active,
	})
}

// logout is stateless on the server side; the event is recorded for the
// security audit and the client drops its token.
func (s *Server) logout(c *gin.Context) {
	a := actor(c)
	s.sec.Event(c.Request.Context(), seclog.EventLogout, c.ClientIP(), &a.ID, "logout")
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
