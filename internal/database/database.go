package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"blogapi/internal/config"
)

var mongoConnect = mongo.Connect

const pingTimeout = 5 * time.Second

// Mongo bundles the client with the application database.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// DatabaseName returns the configured database name, falling back to the
// path of the connection URI.
func DatabaseName(c config.DatabaseConfig) (string, error) {
	if c.Name != "" {
		return c.Name, nil
	}
	cs, err := connstring.ParseAndValidate(c.URI)
	if err != nil {
		return "", fmt.Errorf("invalid database uri: %w", err)
	}
	if cs.Database == "" {
		return "", errors.New("invalid database config: DB_NAME or a database in DB_URI is required")
	}
	return cs.Database, nil
}

// NewMongo connects to MongoDB, applies pooling settings and verifies
// connectivity.
func NewMongo(ctx context.Context, c config.DatabaseConfig) (*Mongo, error) {
	name, err := DatabaseName(c)
	if err != nil {
		return nil, err
	}

	opts := options.Client().ApplyURI(c.URI)
	if c.ConnectTimeoutSec > 0 {
		opts.SetConnectTimeout(time.Duration(c.ConnectTimeoutSec) * time.Second)
		opts.SetServerSelectionTimeout(time.Duration(c.ConnectTimeoutSec) * time.Second)
	}
	if c.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(c.MaxPoolSize))
	}

	client, err := mongoConnect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	m := &Mongo{Client: client, DB: client.Database(name)}
	if err := m.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return m, nil
}

// Ping checks that the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
