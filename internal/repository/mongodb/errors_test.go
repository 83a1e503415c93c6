package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"blogapi/internal/apperr"
	"blogapi/internal/model"
	"blogapi/internal/repository"
)

func TestDriverErrors(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("duplicate key on insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: test.users index: email_1 dup key",
		}))
		users := NewUsers(NewStore(mt.DB))

		_, err := users.Create(ctx, &model.User{FullName: "Ada", Email: "ada@example.com"})
		require.ErrorIs(t, err, apperr.ErrConstraintViolation)
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		assert.NotContains(t, err.Error(), "E11000")
	})

	mt.Run("insert succeeds", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		users := NewUsers(NewStore(mt.DB))

		u, err := users.Create(ctx, &model.User{FullName: "Ada", Email: "ada@example.com"})
		require.NoError(t, err)
		assert.False(t, u.ID.IsZero())
	})

	mt.Run("document validation on update", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    121,
			Name:    "DocumentValidationFailure",
			Message: "Document failed validation",
		}))
		posts := NewPosts(NewStore(mt.DB))

		_, err := posts.Update(ctx, repository.ByID(primitive.NewObjectID()), repository.Update{"title": ""})
		assert.ErrorIs(t, err, apperr.ErrConstraintViolation)
		assert.ErrorIs(t, err, repository.ErrValidation)
		assert.NotErrorIs(t, err, repository.ErrDuplicate)
	})

	mt.Run("empty cursor is absent", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))
		users := NewUsers(NewStore(mt.DB))

		u, err := users.FindOne(ctx, repository.Eq("email", "nobody@example.com"), repository.FindOptions{})
		assert.NoError(t, err)
		assert.Nil(t, u)
	})

	mt.Run("findOne decodes the first batch", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "fullName", Value: "Ada"},
			{Key: "email", Value: "ada@example.com"},
		}))
		users := NewUsers(NewStore(mt.DB))

		u, err := users.FindByID(ctx, id.Hex(), repository.FindOptions{})
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, "Ada", u.FullName)
	})

	mt.Run("command failure is hidden", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "unknown operator: $bogus",
		}))
		users := NewUsers(NewStore(mt.DB))

		_, err := users.Find(ctx, repository.Filter{"email": bson.M{"$bogus": 1}}, repository.FindOptions{})
		require.ErrorIs(t, err, apperr.ErrQueryExecution)
		assert.NotContains(t, err.Error(), "$bogus")
	})
}
