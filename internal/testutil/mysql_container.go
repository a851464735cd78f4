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

var mysqlC sharedContainer

// GetMySQLDSN returns a go-sql-driver DSN of a shared MySQL container.
func GetMySQLDSN(t *testing.T) string {
	t.Helper()
	return mysqlC.get(t, "mysql:8", func(ctx context.Context) (testcontainers.Container, string, error) {
		c, err := testcontainers.Run(
			ctx, "mysql:8",
			testcontainers.WithExposedPorts("3306/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForSQL("3306/tcp", "mysql", func(host string, port nat.Port) string {
					return fmt.Sprintf("flowtest:flowtest@tcp(%s:%s)/flowtest_test", host, port.Port())
				}).WithQuery("SELECT 1").WithStartupTimeout(2*time.Minute),
			),
			testcontainers.WithEnv(map[string]string{
				"MYSQL_ROOT_PASSWORD": "root",
				"MYSQL_USER":          "flowtest",
				"MYSQL_PASSWORD":      "flowtest",
				"MYSQL_DATABASE":      "flowtest_test",
			}),
		)
		if err != nil {
			return c, "", err
		}
		host, err := c.Host(ctx)
		if err != nil {
			return c, "", err
		}
		port, err := c.MappedPort(ctx, "3306/tcp")
		if err != nil {
			return c, "", err
		}
		return c, fmt.Sprintf("flowtest:flowtest@tcp(%s:%s)/flowtest_test", host, port.Port()), nil
	})
}
