package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"blogapi/internal/repository"
)

// FindWithPagination returns one page of matches and the total number of
// matches. The page fetch and the count run concurrently over the same
// filter; they may observe different states under concurrent writes.
// Any store failure is reported as apperr.ErrQueryExecution.
func (b *Base[T]) FindWithPagination(ctx context.Context, filter repository.Filter, opts repository.FindOptions) (*repository.PaginationResult[T], error) {
	ctx, cancel := b.context(ctx)
	defer cancel()

	page, limit := repository.NormalizePage(opts.Page, opts.Limit)
	skip := int64(page-1) * int64(limit)
	q := query(repository.SearchFilter(filter, opts))

	fo := b.findOptions(opts).
		SetSort(repository.SortDoc(opts)).
		SetSkip(skip).
		SetLimit(int64(limit))
	co := options.Count()
	applyCountFlags(co, opts.Flags)

	var (
		docs  []bson.M
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = b.fetch(gctx, q, fo)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = b.coll.CountDocuments(gctx, q, co)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, b.queryFailure(ctx, "findWithPagination", err)
	}

	if err := b.populate(ctx, docs, opts.Populate); err != nil {
		return nil, b.queryFailure(ctx, "findWithPagination", err)
	}
	result, err := decodeAll[T](docs)
	if err != nil {
		return nil, b.queryFailure(ctx, "findWithPagination", err)
	}

	return &repository.PaginationResult[T]{
		Result: result,
		Pagination: repository.Pagination{
			Total:       total,
			CurrentPage: page,
			PageSize:    limit,
		},
	}, nil
}
