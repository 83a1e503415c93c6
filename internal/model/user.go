package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is a registered author. Password holds the bcrypt hash and is never
// serialized to clients.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FullName string             `bson:"fullName,omitempty" json:"fullName,omitempty"`
	Email    string             `bson:"email,omitempty" json:"email,omitempty"`
	Password string             `bson:"password,omitempty" json:"-"`

	Timestamps `bson:",inline"`
}
