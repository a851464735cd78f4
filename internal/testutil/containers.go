// Package testutil starts shared database containers for integration
// tests. Each container is started at most once per test binary and is
// reaped by testcontainers when the binary exits.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

type sharedContainer struct {
	once     sync.Once
	endpoint string
	err      error
}

// get starts the container on first use and returns its endpoint. Tests
// are skipped in -short mode and when the container cannot be started,
// e.g. because no Docker daemon is available.
func (c *sharedContainer) get(t *testing.T, image string, start func(ctx context.Context) (testcontainers.Container, string, error)) string {
	t.Helper()
	if testing.Short() {
		t.Skipf("skipping %s integration test in short mode", image)
	}

	c.once.Do(func() {
		// Give generous timeout in CI environments
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		container, endpoint, err := start(ctx)
		if err != nil {
			_ = testcontainers.TerminateContainer(container) // best-effort cleanup
			c.err = err
			return
		}
		c.endpoint = endpoint
	})

	if c.err != nil {
		t.Skipf("%s container unavailable: %v", image, c.err)
	}
	return c.endpoint
}
