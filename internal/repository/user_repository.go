package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/iliyamo/water-network-api/internal/model"
	"github.com/iliyamo/water-network-api/internal/utils"
	"github.com/iliyamo/water-network-api/internal/validation"
)

// UserRepo is the credential store.
type UserRepo struct{ DB *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{DB: db} }

// Create hashes the password and inserts the user. ErrEmailExists is
// returned when the address is already registered.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, role model.Role, cost int) (*model.User, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Name:         name,
		Email:        validation.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
	}
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.DB.WithContext(ctx).Where("email = ?", validation.NormalizeEmail(email)).Take(&u).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// List returns every user ordered by creation time.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	out := []model.User{}
	err := r.DB.WithContext(ctx).Order("created_at, id").Find(&out).Error
	return out, err
}

// Update applies column changes. Role is never part of the changeset; the
// caller builds it from the profile fields only.
func (r *UserRepo) Update(ctx context.Context, id string, changes map[string]any) (*model.User, error) {
	if len(changes) > 0 {
		changes["updated_at"] = time.Now().UTC()
		res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			if isDuplicate(res.Error) {
				return nil, ErrEmailExists
			}
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
