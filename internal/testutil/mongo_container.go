package testutil

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var mongoC sharedContainer

// GetMongoURI returns a mongodb:// URI of a shared MongoDB container.
func GetMongoURI(t *testing.T) string {
	t.Helper()
	return mongoC.get(t, "mongo:7", func(ctx context.Context) (testcontainers.Container, string, error) {
		c, err := testcontainers.Run(
			ctx, "mongo:7",
			testcontainers.WithExposedPorts("27017/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("27017/tcp"),
				wait.ForLog("Waiting for connections"),
			),
		)
		if err != nil {
			return c, "", err
		}
		endpoint, err := c.Endpoint(ctx, "mongodb")
		return c, endpoint, err
	})
}
