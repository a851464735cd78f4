// Package snapshotstore connects the snapshot backends a flowtest.Config
// can name. It is kept apart from package flowtest so that tests which only
// drive flows do not link database drivers.
package snapshotstore

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"

	"github.com/petrijr/flowtest"
	"github.com/petrijr/flowtest/internal/persistence"
	"github.com/petrijr/flowtest/internal/persistence/mongostore"
	"github.com/petrijr/flowtest/internal/persistence/redisstore"
	"github.com/petrijr/flowtest/internal/persistence/sqlstore"
)

// Open connects the backend selected by sc. The returned close function
// releases the connection. The "none" backend returns a nil store.
func Open(ctx context.Context, sc flowtest.SnapshotConfig) (flowtest.SnapshotStore, func() error, error) {
	noop := func() error { return nil }

	switch sc.Backend {
	case "", flowtest.BackendNone:
		return nil, noop, nil
	case flowtest.BackendMemory:
		return persistence.NewInMemoryStore(), noop, nil
	case flowtest.BackendSQLite, flowtest.BackendPostgres, flowtest.BackendMySQL:
		store, db, err := sqlstore.Open(ctx, sqlstore.Dialect(sc.Backend), sc.DSN, sc.Table)
		if err != nil {
			return nil, nil, err
		}
		return store, db.Close, nil
	case flowtest.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: sc.Address})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", sc.Address, err)
		}
		return redisstore.New(client, sc.Prefix), client.Close, nil
	case flowtest.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(sc.DSN))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		disconnect := func() error { return client.Disconnect(context.Background()) }
		store, err := mongostore.New(ctx, client, sc.Database, sc.Collection)
		if err != nil {
			_ = disconnect()
			return nil, nil, err
		}
		return store, disconnect, nil
	default:
		return nil, nil, fmt.Errorf("unknown snapshot backend %q", sc.Backend)
	}
}
