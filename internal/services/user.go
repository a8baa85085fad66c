package services

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/PrinceDelali/kraloan-gobackend/internal/apperr"
	"github.com/PrinceDelali/kraloan-gobackend/internal/models"
	"github.com/PrinceDelali/kraloan-gobackend/internal/storage"
)

type UserService struct {
	store storage.Store
}

func NewUserService(store storage.Store) *UserService {
	return &UserService{store: store}
}

// Register creates a user with a bcrypt-hashed password and returns the new id.
func (s *UserService) Register(ctx context.Context, fullName, email, phone, password string) (string, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullName == "" || email == "" || password == "" {
		return "", apperr.New(apperr.InvalidInput, "fullname, email and password are required")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return s.store.CreateUser(ctx, &models.User{
		FullName:  fullName,
		Email:     email,
		Phone:     strings.TrimSpace(phone),
		HPassword: string(hashed),
	})
}

// Login checks the credentials and returns the user.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.New(apperr.Forbidden, "invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HPassword), []byte(password)); err != nil {
		return nil, apperr.New(apperr.Forbidden, "invalid email or password")
	}
	return user, nil
}

// GetUser fetches a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// UserList returns all users without password hashes.
func (s *UserService) UserList(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}
