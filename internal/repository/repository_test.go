package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(DriverSQLite, filepath.Join(t.TempDir(), "data", "intake.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake.db")
	for i := 0; i < 2; i++ {
		db, err := NewDB(DriverSQLite, path)
		if err != nil {
			t.Fatalf("open %d: NewDB() error = %v", i, err)
		}
		db.Close()
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	if got := pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("rebind() = %q", got)
	}
	lite := &DB{driver: DriverSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind() = %q", got)
	}
}

func TestSessionTranscript(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(openTestDB(t))

	s := &domain.Session{Stage: domain.StageIntake}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	err := repo.AppendMessages(ctx,
		&domain.Message{SessionID: s.ID, Seq: 1, Role: domain.RoleAssistant, Content: "second", Stage: domain.StageIntake},
		&domain.Message{SessionID: s.ID, Seq: 0, Role: domain.RoleUser, Content: "first", Stage: domain.StageIntake},
	)
	if err != nil {
		t.Fatalf("AppendMessages() error = %v", err)
	}

	msgs, err := repo.GetMessages(ctx, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Fatalf("GetMessages() = %+v", msgs)
	}

	if err := repo.UpdateStage(ctx, s.ID, domain.StageComplete); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Get(ctx, s.ID)
	if err != nil || got == nil || got.Stage != domain.StageComplete {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if n, _ := repo.Count(ctx, domain.StageComplete); n != 1 {
		t.Fatalf("Count(complete) = %d", n)
	}

	if err := repo.Delete(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.Get(ctx, s.ID); got != nil {
		t.Fatal("session still present after Delete")
	}
	if msgs, _ := repo.GetMessages(ctx, s.ID); len(msgs) != 0 {
		t.Fatal("transcript not removed with session")
	}
}

func TestPsychiatristSeedAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewPsychiatristRepository(openTestDB(t))

	n, err := repo.Seed(ctx, DefaultPsychiatrists)
	if err != nil || n != len(DefaultPsychiatrists) {
		t.Fatalf("Seed() = %d, %v", n, err)
	}
	if n, _ := repo.Seed(ctx, DefaultPsychiatrists); n != 0 {
		t.Fatalf("second Seed() inserted %d", n)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range list {
		if p.Name != DefaultPsychiatrists[i].Name {
			t.Fatalf("List()[%d] = %s, want seed order", i, p.Name)
		}
	}
	if !list[0].InNetwork || len(list[0].Insurance) != 3 {
		t.Fatalf("round trip lost fields: %+v", list[0])
	}

	p := list[1]
	p.Rating = 3.9
	p.Tags = append(p.Tags, "paranoia")
	if err := repo.Update(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Get(ctx, p.ID)
	if err != nil || got.Rating != 3.9 || len(got.Tags) != len(p.Tags) {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if missing, _ := repo.Get(ctx, "nope"); missing != nil {
		t.Fatal("Get(unknown) returned a record")
	}
}

func TestSummaryUpsertAndBookingOncePerSession(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sessions := NewSessionRepository(db)
	summaries := NewSummaryRepository(db)
	bookings := NewBookingRepository(db)
	psychiatrists := NewPsychiatristRepository(db)

	s := &domain.Session{Stage: domain.StageSummary}
	if err := sessions.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	sum := &domain.ClinicalSummary{SessionID: s.ID, ChiefComplaint: "low mood", PHQ9Score: 12, PHQ9Severity: "Moderate"}
	if err := summaries.Upsert(ctx, sum); err != nil {
		t.Fatal(err)
	}
	sum.Narrative = "edited"
	sum.Edited = true
	if err := summaries.Upsert(ctx, sum); err != nil {
		t.Fatal(err)
	}
	got, err := summaries.Get(ctx, s.ID)
	if err != nil || got == nil || got.Narrative != "edited" || !got.Edited || got.PHQ9Score != 12 {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	p := &domain.Psychiatrist{Name: "Dr. Test", Email: "t@example.com"}
	if err := psychiatrists.Create(ctx, p); err != nil {
		t.Fatal(err)
	}
	first, err := bookings.Create(ctx, &domain.Booking{SessionID: s.ID, PsychiatristID: p.ID, Subject: "a", Body: "b"})
	if err != nil || !first {
		t.Fatalf("first Create() = %v, %v", first, err)
	}
	second, err := bookings.Create(ctx, &domain.Booking{SessionID: s.ID, PsychiatristID: p.ID, Subject: "c", Body: "d"})
	if err != nil || second {
		t.Fatalf("second Create() = %v, %v", second, err)
	}
	if n, _ := bookings.Count(ctx); n != 1 {
		t.Fatalf("Count() = %d", n)
	}
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("INTAKE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INTAKE_TEST_POSTGRES_DSN not set")
	}
	db, err := NewDB(DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	repo := NewSessionRepository(db)
	s := &domain.Session{Stage: domain.StageIntake}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	defer repo.Delete(ctx, s.ID)
	if got, err := repo.Get(ctx, s.ID); err != nil || got == nil {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
}
