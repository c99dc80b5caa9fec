package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/nkiryanov/bookstore/internal/models"
	"github.com/nkiryanov/bookstore/internal/repository"
	"github.com/nkiryanov/bookstore/internal/service/auth"
)

// Data to create user with; password is plain text here
type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      string
	Password  string
}

type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
	}
}

// CreateUser hashes password and saves user
// Unknown role gives apperrors.ErrRoleUnknown, taken username or email apperrors.ErrUserAlreadyExists
func (s *UserService) CreateUser(ctx context.Context, u NewUser) (models.User, error) {
	var user models.User

	if u.Username == "" || u.Email == "" {
		return user, errors.New("username and email must not be empty")
	}

	role, err := models.ParseRole(u.Role)
	if err != nil {
		return user, err
	}

	hash, err := s.hasher.Hash(u.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	user, err = s.storage.User().CreateUser(ctx, models.User{
		Username:       u.Username,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Role:           role,
		HashedPassword: hash,
	})
	if err != nil {
		return user, fmt.Errorf("can't create user. Err: %w", err)
	}

	return user, nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	return s.storage.User().GetUserByID(ctx, userID)
}
