package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogapi/internal/repository"
)

// populate replaces reference fields of docs with the referenced documents,
// one query per path. A reference to a missing document becomes null; in
// arrays missing references are dropped.
func (b *Base[T]) populate(ctx context.Context, docs []bson.M, pops []repository.Populate) error {
	for _, p := range pops {
		if p.Path == "" || p.Collection == "" {
			return fmt.Errorf("populate: path and collection are required")
		}
		ids := collectRefs(docs, p.Path)
		if len(ids) == 0 {
			continue
		}

		fo := options.Find()
		if proj := p.Projection(); proj != nil {
			fo.SetProjection(proj)
		}
		cur, err := b.store.Collection(p.Collection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, fo)
		if err != nil {
			return fmt.Errorf("populate %s: %w", p.Path, err)
		}
		var related []bson.M
		if err := cur.All(ctx, &related); err != nil {
			return fmt.Errorf("populate %s: %w", p.Path, err)
		}

		byID := make(map[primitive.ObjectID]bson.M, len(related))
		for _, r := range related {
			if id, ok := r["_id"].(primitive.ObjectID); ok {
				byID[id] = r
			}
		}
		for _, d := range docs {
			replaceRefs(d, p.Path, byID)
		}
	}
	return nil
}

func collectRefs(docs []bson.M, path string) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{})
	ids := make([]primitive.ObjectID, 0)
	add := func(v any) {
		id, ok := v.(primitive.ObjectID)
		if !ok {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, d := range docs {
		switch v := d[path].(type) {
		case primitive.A:
			for _, e := range v {
				add(e)
			}
		default:
			add(v)
		}
	}
	return ids
}

func replaceRefs(d bson.M, path string, byID map[primitive.ObjectID]bson.M) {
	v, ok := d[path]
	if !ok {
		return
	}
	switch v := v.(type) {
	case primitive.ObjectID:
		if found, ok := byID[v]; ok {
			d[path] = found
		} else {
			d[path] = nil
		}
	case primitive.A:
		out := make(primitive.A, 0, len(v))
		for _, e := range v {
			id, ok := e.(primitive.ObjectID)
			if !ok {
				out = append(out, e)
				continue
			}
			if found, ok := byID[id]; ok {
				out = append(out, found)
			}
		}
		d[path] = out
	}
}
