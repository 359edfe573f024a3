package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/internal/service"
	"github.com/nimbuschat/nimbus/pkg/log"
	"github.com/nimbuschat/nimbus/pkg/middleware"
	"github.com/nimbuschat/nimbus/pkg/response"
)

// AuthHandler handles registration, sessions, and the own profile.
type AuthHandler struct {
	auth service.AuthService
	mw   *middleware.AuthMiddleware
}

func NewAuthHandler(auth service.AuthService, mw *middleware.AuthMiddleware) *AuthHandler {
	return &AuthHandler{auth: auth, mw: mw}
}

// RegisterRoutes registers auth and profile routes.
func (h *AuthHandler) RegisterRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.mw.RequireAuth(), h.Logout)
	}

	users := api.Group("/users")
	users.Use(h.mw.RequireAuth())
	{
		users.GET("/me", h.GetMe)
		users.PUT("/me", h.UpdateMe)
	}
}

type sessionResponse struct {
	User   *domain.User      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid register request")
		response.BadRequest(c, err.Error())
		return
	}

	user, tokens, err := h.auth.Register(ctx, &req)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			response.Conflict(c, "email already registered")
			return
		}
		l.Error().Err(err).Msg("register failed")
		response.InternalError(c, "failed to register user")
		return
	}

	response.Created(c, sessionResponse{User: user, Tokens: tokens})
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid login request")
		response.BadRequest(c, err.Error())
		return
	}

	user, tokens, err := h.auth.Login(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		l.Error().Err(err).Msg("login failed")
		response.InternalError(c, "failed to login")
		return
	}

	response.Success(c, sessionResponse{User: user, Tokens: tokens})
}

// Refresh exchanges a refresh token for a new pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	var req domain.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tokens, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "invalid or expired refresh token")
		return
	}

	response.Success(c, tokens)
}

// Logout revokes the caller's tokens.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), middleware.GetUserID(c))
	response.Success(c, gin.H{"message": "logged out"})
}

// GetMe returns the caller's profile.
func (h *AuthHandler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.auth.GetProfile(ctx, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("get profile failed")
		response.InternalError(c, "failed to load profile")
		return
	}
	response.Success(c, user)
}

// UpdateMe changes the caller's username or avatar.
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)
	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.auth.UpdateProfile(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidImage) {
			response.BadRequest(c, "invalid avatar image")
			return
		}
		l.Error().Err(err).Msg("update profile failed")
		response.InternalError(c, "failed to update profile")
		return
	}
	response.Success(c, user)
}
