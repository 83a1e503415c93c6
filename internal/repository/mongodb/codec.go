package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"blogapi/internal/repository"
)

// toDocument renders v as a field map.
func toDocument(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return m, nil
}

func decode[T any](m bson.M) (*T, error) {
	raw, err := bson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out T
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &out, nil
}

func decodeAll[T any](docs []bson.M) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, m := range docs {
		v, err := decode[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// query converts a filter to the form the driver sends. A nil filter
// matches every document.
func query(f repository.Filter) bson.M {
	if f == nil {
		return bson.M{}
	}
	return bson.M(f)
}
