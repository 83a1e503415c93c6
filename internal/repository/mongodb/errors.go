package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"blogapi/internal/apperr"
	"blogapi/internal/logger"
	"blogapi/internal/repository"
)

// documentValidationFailure is returned when a write breaks the collection
// validator.
const documentValidationFailure = 121

func isValidationError(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(documentValidationFailure)
}

// translateWrite maps a driver error from a write to the error taxonomy.
func (b *Base[T]) translateWrite(ctx context.Context, op string, err error) error {
	switch {
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	case isValidationError(err):
		return repository.ErrValidation
	}
	return b.queryFailure(ctx, op, err)
}

// queryFailure logs the driver error and hides it behind ErrQueryExecution.
func (b *Base[T]) queryFailure(ctx context.Context, op string, err error) error {
	logger.From(ctx).Error("mongodb operation failed",
		logger.Collection(b.schema.Collection),
		logger.Op(op),
		logger.Err(err),
	)
	return apperr.ErrQueryExecution
}
