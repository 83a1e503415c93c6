package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"blogapi/internal/model"
	"blogapi/internal/repository"
)

var PostSchema = repository.Schema{
	Collection: model.PostsCollection,
	Timestamps: true,
	Hidden:     repository.TimestampFields,
}

// Posts is the MongoDB post repository.
type Posts struct {
	*Base[model.Post]
}

func NewPosts(store Store, opts ...Option) *Posts {
	return &Posts{Base: NewBase[model.Post](store, PostSchema, opts...)}
}

var _ repository.PostRepository = (*Posts)(nil)

// DistinctAuthors returns the ids of every user with at least one post, in
// the order the store reports them.
func (p *Posts) DistinctAuthors(ctx context.Context) ([]primitive.ObjectID, error) {
	ctx, cancel := p.context(ctx)
	defer cancel()

	values, err := p.coll.Distinct(ctx, "author", bson.M{})
	if err != nil {
		return nil, p.queryFailure(ctx, "distinctAuthors", err)
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
