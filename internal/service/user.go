package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"blogapi/internal/apperr"
	"blogapi/internal/model"
	"blogapi/internal/repository"
)

// UserService exposes account data of the signed-in user.
type UserService interface {
	Profile(ctx context.Context, userID primitive.ObjectID) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Profile(ctx context.Context, userID primitive.ObjectID) (*model.User, error) {
	user, err := s.users.FindOne(ctx, repository.ByID(userID), repository.FindOptions{})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.New(apperr.ErrNotFound, "User not found")
	}
	return user, nil
}
