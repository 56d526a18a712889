package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/metrics"
	"github.com/iliyamo/water-network-api/internal/middleware"
	"github.com/iliyamo/water-network-api/internal/repository"
	"github.com/iliyamo/water-network-api/internal/token"
	"github.com/iliyamo/water-network-api/internal/utils"
	"github.com/iliyamo/water-network-api/internal/validation"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	Users      *repository.UserRepo
	Tokens     *token.Service
	BcryptCost int
	Metrics    *metrics.Metrics
}

func NewAuthHandler(users *repository.UserRepo, tokens *token.Service, bcryptCost int, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, BcryptCost: bcryptCost, Metrics: m}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type loginResp struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Role         string `json:"role"`
}

// Register creates an account. Tokens are only handed out by Login.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}
	role, err := validation.Registration(req.Name, validation.NormalizeEmail(req.Email), req.Password, req.Role)
	if err != nil {
		return err
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	_, err = h.Users.Create(ctx, strings.TrimSpace(req.Name), req.Email, req.Password, role, h.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return apperr.Conflict("Email already exists")
	}
	if err != nil {
		return apperr.Internal("create user", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User registered successfully!"})
}

// Login checks the credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperr.ValidationFailed("Email and password are required")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		h.Metrics.AuthEvent(metrics.EventLoginFailure)
		return storeErr(err, "User not found", "load user")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		h.Metrics.AuthEvent(metrics.EventLoginFailure)
		return apperr.BadRequest("Invalid credentials")
	}

	sub := token.Subject{ID: u.ID, Role: u.Role}
	access, err := h.Tokens.IssueAccessToken(sub)
	if err != nil {
		return apperr.Internal("issue access token", err)
	}
	refresh, err := h.Tokens.IssueRefreshToken(sub)
	if err != nil {
		return apperr.Internal("issue refresh token", err)
	}
	h.Metrics.AuthEvent(metrics.EventLoginSuccess)
	return c.JSON(http.StatusOK, loginResp{AccessToken: access, RefreshToken: refresh, Role: string(u.Role)})
}

// Refresh returns a new access token. The refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	access, err := h.Tokens.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		h.Metrics.AuthEvent(metrics.EventRefreshDenied)
		return refreshErr(err)
	}
	h.Metrics.AuthEvent(metrics.EventRefresh)
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access})
}

func refreshErr(err error) error {
	switch {
	case errors.Is(err, token.ErrMissing):
		return apperr.Unauthenticated("Refresh token not provided")
	case errors.Is(err, token.ErrRefreshExpired):
		return apperr.Forbidden("Refresh token expired")
	case errors.Is(err, token.ErrRevoked):
		return apperr.Forbidden("Refresh token has been revoked")
	case errors.Is(err, token.ErrInvalid):
		return apperr.Forbidden("Invalid refresh token")
	default:
		return apperr.Internal("refresh token", err)
	}
}

// Logout revokes the supplied refresh token. Unknown or already revoked
// tokens still succeed.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	raw := strings.TrimSpace(req.RefreshToken)
	if raw == "" {
		return apperr.BadRequest("Refresh token not provided")
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, raw); err != nil {
		return apperr.Internal("revoke refresh token", err)
	}
	h.Metrics.AuthEvent(metrics.EventLogout)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

// Me echoes the identity carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"id":   middleware.UserID(c),
		"role": middleware.Role(c),
	})
}
