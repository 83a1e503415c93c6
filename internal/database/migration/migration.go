package migration

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"blogapi/internal/model"
)

// validationLevel "moderate" leaves documents written before a validator
// change alone until they are next updated.
const validationLevel = "moderate"

type collectionStep struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

var steps = []collectionStep{
	{
		Name: model.UsersCollection,
		Validator: jsonSchema(
			[]string{"fullName", "email", "password"},
			bson.M{
				"fullName": bson.M{"bsonType": "string", "minLength": 1},
				"email":    bson.M{"bsonType": "string", "minLength": 3},
				"password": bson.M{"bsonType": "string"},
			},
		),
		Indexes: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_1").SetUnique(true),
			},
		},
	},
	{
		Name: model.PostsCollection,
		Validator: jsonSchema(
			[]string{"title", "content", "author"},
			bson.M{
				"title":       bson.M{"bsonType": "string", "minLength": 1},
				"content":     bson.M{"bsonType": "string", "minLength": 1},
				"author":      bson.M{"bsonType": "objectId"},
				"tags":        bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
				"isPublished": bson.M{"bsonType": "bool"},
				"publishedAt": bson.M{"bsonType": "date"},
				"likes":       bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"comments":    bson.M{"bsonType": "array"},
				"coverImage":  bson.M{"bsonType": "string"},
			},
		),
		Indexes: []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "author", Value: 1}},
				Options: options.Index().SetName("author_1"),
			},
			{
				Keys:    bson.D{{Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("createdAt_-1"),
			},
		},
	},
}

func jsonSchema(required []string, properties bson.M) bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   required,
		"properties": properties,
	}}
}

// EnsureMigrated creates the collections with their validators and indexes.
// Existing collections get the current validator through collMod. Index
// creation is idempotent.
func EnsureMigrated(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	start := time.Now()
	log = log.With(zap.String("component", "database"), zap.String("db_name", db.Name()))
	log.Info("db_migration_check", zap.String("status", "starting"))

	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.Error(err),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to list collections: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, name := range existing {
		present[name] = true
	}

	for _, step := range steps {
		stepStart := time.Now()
		if err := apply(ctx, db, step, present[step.Name]); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.Error(err),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Bool("created", !present[step.Name]),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

func apply(ctx context.Context, db *mongo.Database, step collectionStep, exists bool) error {
	if exists {
		cmd := bson.D{
			{Key: "collMod", Value: step.Name},
			{Key: "validator", Value: step.Validator},
			{Key: "validationLevel", Value: validationLevel},
		}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("collMod: %w", err)
		}
	} else {
		opts := options.CreateCollection().
			SetValidator(step.Validator).
			SetValidationLevel(validationLevel)
		if err := db.CreateCollection(ctx, step.Name, opts); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	if len(step.Indexes) == 0 {
		return nil
	}
	if _, err := db.Collection(step.Name).Indexes().CreateMany(ctx, step.Indexes); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}
