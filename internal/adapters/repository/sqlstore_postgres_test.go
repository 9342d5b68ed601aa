//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
)

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "wser",
			},
			Cmd: []string{"postgres", "-c", "fsync=off"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("postgresql://postgres:password@%s:%s/wser", host, port.Port())
}

func TestSQLStore_Postgres(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLStore(ctx, DriverPostgres, startPostgres(ctx, t))
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer s.Close()

	for _, r := range fixture() {
		if err := s.SaveRunner(ctx, r.info, r.splits); err != nil {
			t.Fatalf("save %s: %v", r.info.ID, err)
		}
	}

	got, err := s.RunnerIDs(ctx, model.RunnerFilter{
		Gender:         types.GenderFemale,
		MinFinishHours: omit.From(16.0),
		MaxFinishHours: omit.From(18.0),
	})
	if err != nil {
		t.Fatalf("runner ids: %v", err)
	}
	if !equalIDs(got, ids("20", "3")) {
		t.Errorf("unexpected ids %v", got)
	}

	n, err := s.CountInRange(ctx, types.GenderAny, 16, 18)
	if err != nil || n != 2 {
		t.Errorf("expected 2, got %d (%v)", n, err)
	}

	if _, err := s.Split(ctx, "LyonRidge", "3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	found, err := s.Search(ctx, "walmsley")
	if err != nil || len(found) != 2 {
		t.Errorf("expected 2 matches, got %d (%v)", len(found), err)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
}
