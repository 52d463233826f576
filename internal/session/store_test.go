package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get(missing) error = %v", err)
	}

	s := domain.NewConversationState("sess-"+time.Now().Format("150405.000000"), time.Now().UTC())
	s.Intake.ChiefComplaint = "low mood"
	s.Topics.Add("mood")
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Get(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Intake.ChiefComplaint != "low mood" || !got.Topics.Has("mood") || got.Stage != domain.StageIntake {
		t.Fatalf("Get() = %+v", got)
	}

	got.Intake.ChiefComplaint = "changed"
	again, _ := store.Get(ctx, s.SessionID)
	if again.Intake.ChiefComplaint != "low mood" {
		t.Fatal("mutating a returned state changed the stored state")
	}

	if err := store.Delete(ctx, s.SessionID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, s.SessionID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get after Delete error = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Hour))
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Unix(1000, 0)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	if err := store.Save(ctx, domain.NewConversationState("a", now)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.Get(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired Get() error = %v", err)
	}
	if n := store.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d", n)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("INTAKE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("INTAKE_TEST_REDIS_ADDR not set")
	}
	store, err := NewRedisStore(context.Background(), RedisOptions{Addr: addr, TTL: time.Minute, Prefix: "intake-test:"}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	exerciseStore(t, store)
}
