package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"blogapi/internal/model"
	"blogapi/internal/repository"
)

// MockRepository is a testify mock of repository.Repository[T].
type MockRepository[T any] struct {
	mock.Mock
}

func (m *MockRepository[T]) Create(ctx context.Context, doc *T) (*T, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T]) FindOne(ctx context.Context, filter repository.Filter, opts repository.FindOptions) (*T, error) {
	args := m.Called(ctx, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T]) FindByID(ctx context.Context, id string, opts repository.FindOptions) (*T, error) {
	args := m.Called(ctx, id, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T]) Find(ctx context.Context, filter repository.Filter, opts repository.FindOptions) ([]T, error) {
	args := m.Called(ctx, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockRepository[T]) Update(ctx context.Context, filter repository.Filter, patch repository.Update) (*T, error) {
	args := m.Called(ctx, filter, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T]) DeleteOne(ctx context.Context, filter repository.Filter) (bool, error) {
	args := m.Called(ctx, filter)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository[T]) InsertMany(ctx context.Context, docs []T) ([]T, error) {
	args := m.Called(ctx, docs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]T), args.Error(1)
}

func (m *MockRepository[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error) {
	args := m.Called(ctx, pipeline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bson.M), args.Error(1)
}

func (m *MockRepository[T]) FindWithPagination(ctx context.Context, filter repository.Filter, opts repository.FindOptions) (*repository.PaginationResult[T], error) {
	args := m.Called(ctx, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PaginationResult[T]), args.Error(1)
}

type MockUserRepository struct {
	MockRepository[model.User]
}

type MockPostRepository struct {
	MockRepository[model.Post]
}

func (m *MockPostRepository) DistinctAuthors(ctx context.Context) ([]primitive.ObjectID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]primitive.ObjectID), args.Error(1)
}

var (
	_ repository.UserRepository = (*MockUserRepository)(nil)
	_ repository.PostRepository = (*MockPostRepository)(nil)
)
