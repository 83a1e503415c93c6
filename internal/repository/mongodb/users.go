package mongodb

import (
	"blogapi/internal/model"
	"blogapi/internal/repository"
)

// UserSchema hides the password hash unless it is explicitly requested.
var UserSchema = repository.Schema{
	Collection: model.UsersCollection,
	Timestamps: true,
	Hidden:     repository.TimestampFields,
	Sensitive:  []string{"password"},
}

// Users is the MongoDB user repository.
type Users struct {
	*Base[model.User]
}

func NewUsers(store Store, opts ...Option) *Users {
	return &Users{Base: NewBase[model.User](store, UserSchema, opts...)}
}

var _ repository.UserRepository = (*Users)(nil)
