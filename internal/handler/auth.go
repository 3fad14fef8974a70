package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-inventory-ledger/internal/config"
	"github.com/iliyamo/hotel-inventory-ledger/internal/logger"
	"github.com/iliyamo/hotel-inventory-ledger/internal/model"
	"github.com/iliyamo/hotel-inventory-ledger/internal/repository"
	"github.com/iliyamo/hotel-inventory-ledger/internal/utils"
)

// AuthHandler bundles dependencies for the staff auth endpoints.
type AuthHandler struct {
	cfg   config.Config
	users repository.UserStore
	log   *zap.Logger
}

func NewAuthHandler(cfg config.Config, users repository.UserStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, log: logger.OrNop(log)}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User   model.User `json:"user"`
	Access tokenPart  `json:"access"`
}

// Register creates a staff account.  The very first account becomes ADMIN,
// every later one STAFF.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	ctx, cancel := withTimeout(c, h.cfg.RequestTimeout)
	defer cancel()

	n, err := h.users.CountUsers(ctx)
	if err != nil {
		return fail(c, h.log, err)
	}
	role := model.RoleStaff
	if n == 0 {
		role = model.RoleAdmin
	}
	hash, err := utils.HashPassword(req.Password, h.cfg.BcryptCost)
	if err != nil {
		return fail(c, h.log, err)
	}
	now := time.Now().UTC()
	u := model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.users.CreateUser(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return fail(c, h.log, err)
	}
	h.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return h.issue(c, http.StatusCreated, u)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := bindValid(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	ctx, cancel := withTimeout(c, h.cfg.RequestTimeout)
	defer cancel()

	u, err := h.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return fail(c, h.log, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	return h.issue(c, http.StatusOK, u)
}

func (h *AuthHandler) issue(c echo.Context, status int, u model.User) error {
	access, err := utils.NewAccessToken(h.cfg.JWTSecret, u.ID, u.Role, h.cfg.AccessTTLMin)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(status, authResp{User: u, Access: tokenPart{Token: access.Token, Expires: access.Exp}})
}

// Me returns the account behind the access token.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.cfg.RequestTimeout)
	defer cancel()
	u, err := h.users.GetUserByID(ctx, actor(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, u)
}
