package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var postgresC sharedContainer

// GetPostgresDSN returns a pgx DSN of a shared PostgreSQL container.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()
	return postgresC.get(t, "postgres:16", func(ctx context.Context) (testcontainers.Container, string, error) {
		c, err := testcontainers.Run(
			ctx, "postgres:16",
			testcontainers.WithExposedPorts("5432/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForAll(
					wait.ForListeningPort("5432/tcp"),
					wait.ForLog("ready to accept connections"),
					// Actively verify SQL connectivity using the mapped host:port
					wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
						return fmt.Sprintf("postgres://flowtest:flowtest@%s:%s/flowtest_test?sslmode=disable", host, port.Port())
					}).WithQuery("SELECT 1"),
				).WithDeadline(2*time.Minute),
			),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_USER":     "flowtest",
				"POSTGRES_PASSWORD": "flowtest",
				"POSTGRES_DB":       "flowtest_test",
			}),
		)
		if err != nil {
			return c, "", err
		}
		endpoint, err := c.Endpoint(ctx, "")
		if err != nil {
			return c, "", err
		}
		return c, fmt.Sprintf("postgres://flowtest:flowtest@%s/flowtest_test?sslmode=disable", endpoint), nil
	})
}
