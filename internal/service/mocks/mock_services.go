package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"blogapi/internal/model"
	"blogapi/internal/repository"
	"blogapi/internal/service"
	"blogapi/internal/storage"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (*service.AccessToken, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccessToken), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, in service.LoginInput) (*service.LoginResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*service.AccessToken, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AccessToken), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Profile(ctx context.Context, userID primitive.ObjectID) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockPostService struct {
	mock.Mock
}

func (m *MockPostService) Create(ctx context.Context, author primitive.ObjectID, in service.CreatePostInput, cover *service.CoverUpload) (*model.Post, error) {
	args := m.Called(ctx, author, in, cover)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostService) List(ctx context.Context, q service.ListPostsQuery) (*repository.PaginationResult[model.Post], error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PaginationResult[model.Post]), args.Error(1)
}

func (m *MockPostService) Authors(ctx context.Context, q service.AuthorsQuery) (*service.AuthorsPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthorsPage), args.Error(1)
}

func (m *MockPostService) Get(ctx context.Context, id string) (*model.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostService) Update(ctx context.Context, author primitive.ObjectID, id string, in service.UpdatePostInput) (*model.Post, error) {
	args := m.Called(ctx, author, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockPostService) Delete(ctx context.Context, author primitive.ObjectID, id string) error {
	args := m.Called(ctx, author, id)
	return args.Error(0)
}

func (m *MockPostService) Cover(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, id)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

var (
	_ service.AuthService = (*MockAuthService)(nil)
	_ service.UserService = (*MockUserService)(nil)
	_ service.PostService = (*MockPostService)(nil)
)
