package pgstore_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/extract"
	"github.com/linnemanlabs/sift/internal/postgres"
	"github.com/linnemanlabs/sift/internal/triage"
	"github.com/linnemanlabs/sift/internal/triage/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("SIFT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SIFT_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("postgres.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func sampleResult(id, fp string) *triage.Result {
	amount := 1250000.00
	return &triage.Result{
		ID:          id,
		Fingerprint: fp,
		Category:    classify.CategoryMoneyMovement,
		Confidence:  0.87,
		RawLabel:    "Money Movement Inbound",
		SubType:     "Principal",
		Extracted: extract.Fields{
			DealName:       "Alpha Corp Financing",
			Amount:         &amount,
			ExpirationDate: "2025-12-31",
		},
		Attachments: []triage.AttachmentFields{
			{Name: "term_sheet.txt", Fields: extract.Fields{DealName: "Alpha Corp Financing"}},
		},
		Model:     "claude-sonnet-4-20250514",
		CreatedAt: time.Now().Truncate(time.Microsecond).UTC(),
		Duration:  0.42,
	}
}

func TestPutAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	r := sampleResult("test-put-get-001", "fp-put-get")
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Get(ctx, r.Fingerprint)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get returned ok=false, want true")
	}
	if got.ID != r.ID {
		t.Errorf("ID = %q, want %q", got.ID, r.ID)
	}
	if got.Category != r.Category {
		t.Errorf("Category = %q, want %q", got.Category, r.Category)
	}
	if got.SubType != r.SubType {
		t.Errorf("SubType = %q, want %q", got.SubType, r.SubType)
	}
	if got.Extracted.Amount == nil || *got.Extracted.Amount != 1250000.00 {
		t.Errorf("Amount = %v, want 1250000.00", got.Extracted.Amount)
	}
	if got.Extracted.ExpirationDate != "2025-12-31" {
		t.Errorf("ExpirationDate = %q, want 2025-12-31", got.Extracted.ExpirationDate)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Name != "term_sheet.txt" {
		t.Errorf("Attachments = %+v, want one term_sheet.txt entry", got.Attachments)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, r.CreatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	s := openStore(t)

	_, ok, err := s.Get(context.Background(), "fp-missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("Get returned ok=true for missing fingerprint")
	}
}

func TestExists(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "fp-exists-check")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Fatal("Exists = true before insert")
	}

	if err := s.Put(ctx, sampleResult("test-exists-001", "fp-exists-check")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err = s.Exists(ctx, "fp-exists-check")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Fatal("Exists = false after insert")
	}
}

func TestPutConflict(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, sampleResult("test-conflict-001", "fp-conflict")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	err := s.Put(ctx, sampleResult("test-conflict-002", "fp-conflict"))
	if !errors.Is(err, triage.ErrAlreadyExists) {
		t.Fatalf("second Put err = %v, want ErrAlreadyExists", err)
	}

	got, _, err := s.Get(ctx, "fp-conflict")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "test-conflict-001" {
		t.Errorf("stored ID = %q, want the first writer's", got.ID)
	}
}

func TestPutIdenticalNoOp(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	r := sampleResult("test-idem-001", "fp-idem")
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, r); err != nil {
		t.Fatalf("re-Put of identical run: %v, want nil", err)
	}
}
