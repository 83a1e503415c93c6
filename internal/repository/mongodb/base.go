package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogapi/internal/apperr"
	"blogapi/internal/repository"
)

// Base implements repository.Repository[T] over one collection. It holds no
// per-call state and is safe for concurrent use.
type Base[T any] struct {
	store  Store
	coll   Collection
	schema repository.Schema

	timeout time.Duration
	now     func() time.Time
}

type settings struct {
	timeout time.Duration
	now     func() time.Time
}

// Option configures a Base.
type Option func(*settings)

// WithTimeout bounds every operation whose context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// NewBase returns a repository for the collection named by schema.
func NewBase[T any](store Store, schema repository.Schema, opts ...Option) *Base[T] {
	s := settings{now: time.Now}
	for _, opt := range opts {
		opt(&s)
	}
	return &Base[T]{
		store:   store,
		coll:    store.Collection(schema.Collection),
		schema:  schema,
		timeout: s.timeout,
		now:     s.now,
	}
}

var _ repository.Repository[struct{}] = (*Base[struct{}])(nil)

func (b *Base[T]) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			return context.WithTimeout(ctx, b.timeout)
		}
	}
	return ctx, func() {}
}

func (b *Base[T]) timestamp() time.Time {
	return b.now().UTC().Truncate(time.Millisecond)
}

// prepare assigns the identifier and timestamps of a new document.
func (b *Base[T]) prepare(doc *T) (bson.M, error) {
	m, err := toDocument(doc)
	if err != nil {
		return nil, err
	}
	if id, ok := m["_id"].(primitive.ObjectID); !ok || id.IsZero() {
		m["_id"] = primitive.NewObjectID()
	}
	if b.schema.Timestamps {
		now := b.timestamp()
		m["createdAt"] = now
		m["updatedAt"] = now
		m["__v"] = int32(0)
	}
	return m, nil
}

// Create inserts doc and returns the stored document.
func (b *Base[T]) Create(ctx context.Context, doc *T) (*T, error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	m, err := b.prepare(doc)
	if err != nil {
		return nil, b.queryFailure(ctx, "create", err)
	}
	if _, err := b.coll.InsertOne(ctx, m); err != nil {
		return nil, b.translateWrite(ctx, "create", err)
	}
	out, err := decode[T](m)
	if err != nil {
		return nil, b.queryFailure(ctx, "create", err)
	}
	return out, nil
}

// FindOne returns the first match, or nil when there is none.
func (b *Base[T]) FindOne(ctx context.Context, filter repository.Filter, opts repository.FindOptions) (*T, error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	fo := options.FindOne()
	if proj := b.schema.Projection(opts); proj != nil {
		fo.SetProjection(proj)
	}
	if opts.Sort != "" {
		fo.SetSort(repository.SortDoc(opts))
	}
	applyFindOneFlags(fo, opts.Flags)

	var m bson.M
	if err := b.coll.FindOne(ctx, query(filter), fo).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, b.queryFailure(ctx, "findOne", err)
	}
	docs := []bson.M{m}
	if err := b.populate(ctx, docs, opts.Populate); err != nil {
		return nil, b.queryFailure(ctx, "findOne", err)
	}
	out, err := decode[T](docs[0])
	if err != nil {
		return nil, b.queryFailure(ctx, "findOne", err)
	}
	return out, nil
}

// FindByID looks a document up by its hex identifier. A malformed id
// matches nothing.
func (b *Base[T]) FindByID(ctx context.Context, id string, opts repository.FindOptions) (*T, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return b.FindOne(ctx, repository.ByID(oid), opts)
}

// Find returns every match. Results follow opts.Sort when it is set.
func (b *Base[T]) Find(ctx context.Context, filter repository.Filter, opts repository.FindOptions) ([]T, error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	fo := b.findOptions(opts)
	if opts.Sort != "" {
		fo.SetSort(repository.SortDoc(opts))
	}
	docs, err := b.fetch(ctx, query(filter), fo)
	if err != nil {
		return nil, b.queryFailure(ctx, "find", err)
	}
	if err := b.populate(ctx, docs, opts.Populate); err != nil {
		return nil, b.queryFailure(ctx, "find", err)
	}
	out, err := decodeAll[T](docs)
	if err != nil {
		return nil, b.queryFailure(ctx, "find", err)
	}
	return out, nil
}

// Update applies patch to the first match and returns the document as it
// is after the update, or nil when nothing matched. Collection validators
// run on the new document.
func (b *Base[T]) Update(ctx context.Context, filter repository.Filter, patch repository.Update) (*T, error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	upd, err := b.updateDoc(patch)
	if err != nil {
		return nil, err
	}

	fo := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetUpsert(false)
	if proj := b.schema.Projection(repository.FindOptions{}); proj != nil {
		fo.SetProjection(proj)
	}

	var m bson.M
	if err := b.coll.FindOneAndUpdate(ctx, query(filter), upd, fo).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, b.translateWrite(ctx, "update", err)
	}
	out, err := decode[T](m)
	if err != nil {
		return nil, b.queryFailure(ctx, "update", err)
	}
	return out, nil
}

// updateDoc wraps bare fields into $set, drops _id from $set and bumps
// updatedAt.
func (b *Base[T]) updateDoc(patch repository.Update) (bson.M, error) {
	upd := bson.M{}
	set := bson.M{}
	for k, v := range patch {
		switch {
		case k == "$set":
			fields, err := toDocument(v)
			if err != nil {
				return nil, apperr.New(apperr.ErrInvalidInput, "Invalid update")
			}
			for fk, fv := range fields {
				set[fk] = fv
			}
		case strings.HasPrefix(k, "$"):
			upd[k] = v
		default:
			set[k] = v
		}
	}
	delete(set, "_id")
	if b.schema.Timestamps {
		delete(set, "createdAt")
		set["updatedAt"] = b.timestamp()
	}
	if len(set) > 0 {
		upd["$set"] = set
	}
	if len(upd) == 0 {
		return nil, apperr.New(apperr.ErrInvalidInput, "Nothing to update")
	}
	return upd, nil
}

// DeleteOne removes the first match and reports whether a document was
// removed.
func (b *Base[T]) DeleteOne(ctx context.Context, filter repository.Filter) (bool, error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	res, err := b.coll.DeleteOne(ctx, query(filter))
	if err != nil {
		return false, b.queryFailure(ctx, "deleteOne", err)
	}
	return res.DeletedCount == 1, nil
}

// InsertMany stores docs in one call. Documents written before a failure
// stay written.
func (b *Base[T]) InsertMany(ctx context.Context, docs []T) ([]T, error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	if len(docs) == 0 {
		return []T{}, nil
	}
	prepared := make([]bson.M, 0, len(docs))
	batch := make([]interface{}, 0, len(docs))
	for i := range docs {
		m, err := b.prepare(&docs[i])
		if err != nil {
			return nil, b.queryFailure(ctx, "insertMany", err)
		}
		prepared = append(prepared, m)
		batch = append(batch, m)
	}
	if _, err := b.coll.InsertMany(ctx, batch); err != nil {
		return nil, b.translateWrite(ctx, "insertMany", err)
	}
	out, err := decodeAll[T](prepared)
	if err != nil {
		return nil, b.queryFailure(ctx, "insertMany", err)
	}
	return out, nil
}

// Aggregate runs pipeline and returns the raw output documents.
func (b *Base[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	if pipeline == nil {
		pipeline = mongo.Pipeline{}
	}
	cur, err := b.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, b.queryFailure(ctx, "aggregate", err)
	}
	out := make([]bson.M, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, b.queryFailure(ctx, "aggregate", err)
	}
	return out, nil
}

func (b *Base[T]) findOptions(opts repository.FindOptions) *options.FindOptions {
	fo := options.Find()
	if proj := b.schema.Projection(opts); proj != nil {
		fo.SetProjection(proj)
	}
	applyFindFlags(fo, opts.Flags)
	return fo
}

func (b *Base[T]) fetch(ctx context.Context, filter bson.M, fo *options.FindOptions) ([]bson.M, error) {
	cur, err := b.coll.Find(ctx, filter, fo)
	if err != nil {
		return nil, err
	}
	docs := make([]bson.M, 0)
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func applyFindFlags(fo *options.FindOptions, f repository.QueryFlags) {
	if f.Comment != "" {
		fo.SetComment(f.Comment)
	}
	if f.Hint != nil {
		fo.SetHint(f.Hint)
	}
	if f.MaxTime > 0 {
		fo.SetMaxTime(f.MaxTime)
	}
	if f.Collation != nil {
		fo.SetCollation(f.Collation)
	}
}

func applyFindOneFlags(fo *options.FindOneOptions, f repository.QueryFlags) {
	if f.Comment != "" {
		fo.SetComment(f.Comment)
	}
	if f.Hint != nil {
		fo.SetHint(f.Hint)
	}
	if f.MaxTime > 0 {
		fo.SetMaxTime(f.MaxTime)
	}
	if f.Collation != nil {
		fo.SetCollation(f.Collation)
	}
}

func applyCountFlags(co *options.CountOptions, f repository.QueryFlags) {
	if f.Comment != "" {
		co.SetComment(f.Comment)
	}
	if f.Hint != nil {
		co.SetHint(f.Hint)
	}
	if f.MaxTime > 0 {
		co.SetMaxTime(f.MaxTime)
	}
	if f.Collation != nil {
		co.SetCollation(f.Collation)
	}
}
