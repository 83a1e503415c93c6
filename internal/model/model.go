package model

import "time"

// Collection names of the stored entities.
const (
	UsersCollection = "users"
	PostsCollection = "posts"
)

// Timestamps are managed by the repository on create and update.
// They are hidden from query results unless a projection asks for them.
type Timestamps struct {
	CreatedAt *time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	Version   *int32     `bson:"__v,omitempty" json:"__v,omitempty"`
}
