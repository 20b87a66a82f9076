package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
)

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
	User      *authdomain.Caller `json:"user"`
}

func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.authsvc.Register(c.Request.Context(), authdomain.RegisterRequest{
		FullName: strings.TrimSpace(req.FullName),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.Token, result.ExpiresAt)
	s.auditUser(c, result.Caller, auditdomain.ActionUserRegistered)

	c.JSON(http.StatusCreated, sessionResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.Caller,
	})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.TrimSpace(req.Email)
	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		if s.auditSvc != nil {
			_ = s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
				ActorType:  auditdomain.ActorTypeUser,
				Action:     auditdomain.ActionUserLoginFailed,
				TargetType: "user",
				Metadata:   map[string]any{"email": email},
			})
		}
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.Token, result.ExpiresAt)
	s.auditUser(c, result.Caller, auditdomain.ActionUserLogin)

	c.JSON(http.StatusOK, sessionResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.Caller,
	})
}

// Logout clears the session cookie. Tokens are stateless and expire on
// their own.
func (s *Server) Logout(c *gin.Context) {
	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

func (s *Server) Me(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": caller})
}

func (s *Server) auditUser(c *gin.Context, caller *authdomain.Caller, action string) {
	if s.auditSvc == nil || caller == nil {
		return
	}
	userID := caller.ID.String()
	_ = s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		OrgID:      caller.Claims.OrganizationID,
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    userID,
		Action:     action,
		TargetType: "user",
		TargetID:   userID,
		Metadata:   map[string]any{"email": caller.Email},
	})
}
