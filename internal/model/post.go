package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a blog entry written by a single author.
type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title,omitempty" json:"title,omitempty"`
	Content     string             `bson:"content,omitempty" json:"content,omitempty"`
	Author      *Ref[User]         `bson:"author,omitempty" json:"author,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	IsPublished bool               `bson:"isPublished" json:"isPublished"`
	PublishedAt *time.Time         `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	Likes       []Ref[User]        `bson:"likes,omitempty" json:"likes,omitempty"`
	Comments    []Comment          `bson:"comments,omitempty" json:"comments,omitempty"`
	CoverImage  string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`

	Timestamps `bson:",inline"`
}

type Comment struct {
	User      Ref[User] `bson:"user" json:"user"`
	Comment   string    `bson:"comment" json:"comment"`
	Edited    bool      `bson:"edited" json:"edited"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	Replies   []Reply   `bson:"replies,omitempty" json:"replies,omitempty"`
}

type Reply struct {
	User      Ref[User] `bson:"user" json:"user"`
	Comment   string    `bson:"comment" json:"comment"`
	Edited    bool      `bson:"edited" json:"edited"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
