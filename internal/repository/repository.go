package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"blogapi/internal/apperr"
	"blogapi/internal/model"
)

// Package repository contains data access abstractions shared by every entity.
// The MongoDB implementation lives in the mongodb subpackage.

// Write failures both unwrap to apperr.ErrConstraintViolation. ErrDuplicate
// lets callers tell a unique index hit from a validator rejection.
var (
	ErrDuplicate  = apperr.New(apperr.ErrConstraintViolation, "Duplicate value violates a unique constraint")
	ErrValidation = apperr.New(apperr.ErrConstraintViolation, "Document failed validation")
)

// TimestampFields are managed by the store and hidden by default.
var TimestampFields = []string{"createdAt", "updatedAt", "__v"}

// Schema describes how an entity type is stored.
type Schema struct {
	Collection string
	// Timestamps enables createdAt/updatedAt/__v management.
	Timestamps bool
	// Hidden fields are left out of results unless a projection selects them.
	Hidden []string
	// Sensitive fields are left out of results unless FindOptions.IncludeSensitive is set.
	Sensitive []string
}

// Projection resolves the projection sent to the store for opts: the
// caller's projection, the schema's default-hidden fields and the omitted
// fields overlay.
func (s Schema) Projection(opts FindOptions) bson.D {
	p := opts.Projection
	if p.Inclusive() {
		if opts.IncludeSensitive {
			for _, f := range s.Sensitive {
				if !p.has(f) {
					p = p.with(f, 1)
				}
			}
		}
	} else {
		for _, f := range s.Hidden {
			if !p.has(f) {
				p = p.with(f, 0)
			}
		}
		if !opts.IncludeSensitive {
			for _, f := range s.Sensitive {
				if !p.has(f) {
					p = p.with(f, 0)
				}
			}
		}
	}
	for _, f := range opts.OmitFields {
		p = p.with(f, 0)
	}
	return p.Doc()
}

// Pagination describes the page returned by FindWithPagination.
type Pagination struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
}

// PaginationResult is one page of documents plus the total match count.
type PaginationResult[T any] struct {
	Result     []T        `json:"result"`
	Pagination Pagination `json:"pagination"`
}

// Repository is the data access contract every entity repository offers.
// Lookups return a nil document and a nil error when nothing matches.
type Repository[T any] interface {
	// Create stores doc and returns it with its generated id and timestamps.
	Create(ctx context.Context, doc *T) (*T, error)
	FindOne(ctx context.Context, filter Filter, opts FindOptions) (*T, error)
	FindByID(ctx context.Context, id string, opts FindOptions) (*T, error)
	// Find returns every match. Use FindWithPagination for large sets.
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]T, error)
	// Update modifies the first match and returns it after the update.
	// It never inserts.
	Update(ctx context.Context, filter Filter, patch Update) (*T, error)
	DeleteOne(ctx context.Context, filter Filter) (bool, error)
	InsertMany(ctx context.Context, docs []T) ([]T, error)
	Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error)
	FindWithPagination(ctx context.Context, filter Filter, opts FindOptions) (*PaginationResult[T], error)
}

// UserRepository defines data access for users.
type UserRepository interface {
	Repository[model.User]
}

// PostRepository defines data access for posts.
type PostRepository interface {
	Repository[model.Post]
	// DistinctAuthors returns the ids of every user that wrote a post.
	DistinctAuthors(ctx context.Context) ([]primitive.ObjectID, error)
}
