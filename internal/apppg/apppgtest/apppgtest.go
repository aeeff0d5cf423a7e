// Package apppgtest starts throwaway Postgres containers for tests.
package apppgtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/k11v/emload/internal/apppg"
)

// Setup starts Postgres and returns its connection string.
// The caller must call teardown even when err is not nil.
func Setup(ctx context.Context) (connectionString string, teardown func() error, err error) {
	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	}

	container, err := testcontainers.GenericContainer(ctx, req)
	teardown = func() error {
		if container == nil {
			return nil
		}
		return container.Terminate(context.Background())
	}
	if err != nil {
		return "", teardown, err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", teardown, err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", teardown, err
	}

	connectionString = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port())
	return connectionString, teardown, nil
}

// NewPool starts Postgres, applies the migrations and returns a pool.
// The test is skipped in short mode.
func NewPool(tb testing.TB, ctx context.Context) *pgxpool.Pool {
	tb.Helper()

	if testing.Short() {
		tb.Skip("skipping in short mode")
	}

	connectionString, teardown, err := Setup(ctx)
	tb.Cleanup(func() {
		if teardownErr := teardown(); teardownErr != nil {
			tb.Errorf("didn't want %q", teardownErr)
		}
	})
	if err != nil {
		tb.Fatalf("didn't want %q", err)
	}

	if err = apppg.Setup(connectionString); err != nil {
		tb.Fatalf("didn't want %q", err)
	}

	pool, err := apppg.NewPool(ctx, connectionString)
	if err != nil {
		tb.Fatalf("didn't want %q", err)
	}
	tb.Cleanup(pool.Close)

	return pool
}
