package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/repository"
	"github.com/iliyamo/water-network-api/internal/utils"
	"github.com/iliyamo/water-network-api/internal/validation"
)

// UserHandler serves /api/user.
type UserHandler struct {
	Users      *repository.UserRepo
	BcryptCost int
}

func NewUserHandler(users *repository.UserRepo, bcryptCost int) *UserHandler {
	return &UserHandler{Users: users, BcryptCost: bcryptCost}
}

// updateUserReq has no role field; role changes are not possible here.
type updateUserReq struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := storeCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return apperr.Internal("list users", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "User not found", "load user")
	}
	return c.JSON(http.StatusOK, u)
}

// Update changes name, email and password. A new password is hashed before
// it is stored.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateUserReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	cur, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, "User not found", "load user")
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return apperr.ValidationFailed("Name must not be empty")
		}
		if name != cur.Name {
			changes["name"] = name
		}
	}
	if req.Email != nil {
		email := validation.NormalizeEmail(*req.Email)
		if err := validation.Email(email); err != nil {
			return err
		}
		if email != cur.Email {
			changes["email"] = email
		}
	}
	if req.Password != nil {
		if err := validation.Password(*req.Password); err != nil {
			return err
		}
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			return apperr.Internal("hash password", err)
		}
		changes["password"] = hash
	}

	u, err := h.Users.Update(ctx, id, changes)
	if errors.Is(err, repository.ErrEmailExists) {
		return apperr.Conflict("Email already exists")
	}
	if err != nil {
		return storeErr(err, "User not found", "update user")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User updated successfully", "user": u})
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return storeErr(err, "User not found", "delete user")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}
