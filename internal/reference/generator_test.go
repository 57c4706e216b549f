package reference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/translog"
)

func TestTransactionRefFormat(t *testing.T) {
	gen := NewGenerator(translog.NewMemoryLog())
	gen.now = func() time.Time {
		return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	}

	ref, err := gen.TransactionRef(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(ref, "TXN20240315093000") {
		t.Fatalf("unexpected reference prefix: %s", ref)
	}
	if len(ref) != len("TXN")+14+4 {
		t.Fatalf("unexpected reference length: %s", ref)
	}
}

func TestTransactionRefUnique(t *testing.T) {
	log := translog.NewMemoryLog()
	gen := NewGenerator(log)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		ref, err := gen.TransactionRef(ctx)
		if err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference issued: %s", ref)
		}
		seen[ref] = true
		// Commit the reference so the next candidate is checked against it.
		if err := log.Append(ctx, translog.Transaction{
			Reference: ref,
			Amount:    decimal.NewFromInt(1),
			Category:  translog.CategoryTransfer,
			Status:    translog.StatusCompleted,
		}); err != nil {
			t.Fatalf("append %s: %v", ref, err)
		}
	}
}

func TestTransactionRefBoundedRetries(t *testing.T) {
	log := translog.NewMemoryLog()
	gen := NewGenerator(log)
	gen.now = func() time.Time {
		return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	}
	ctx := context.Background()

	// Occupy every candidate the fixed timestamp can produce.
	stamp := "20240315093000"
	for i := 0; i < 10000; i++ {
		err := log.Append(ctx, translog.Transaction{
			Reference: fmt.Sprintf("TXN%s%04d", stamp, i),
			Amount:    decimal.NewFromInt(1),
			Category:  translog.CategoryTransfer,
			Status:    translog.StatusCompleted,
		})
		if err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	if _, err := gen.TransactionRef(ctx); !errors.Is(err, ErrReferenceCollision) {
		t.Fatalf("expected ErrReferenceCollision, got %v", err)
	}
}

func TestAccountNumberFromPhone(t *testing.T) {
	got := AccountNumber("08031234567", 0)
	if got != "8031234567" {
		t.Fatalf("expected leading zero stripped, got %s", got)
	}

	got = AccountNumber("+234 803 123 4567", 0)
	if got != "8031234567" {
		t.Fatalf("expected country prefix stripped, got %s", got)
	}
}

func TestAccountNumberPadsShortPhones(t *testing.T) {
	got := AccountNumber("0803123", 0)
	if len(got) != 10 {
		t.Fatalf("expected 10 digits, got %q", got)
	}
	if !strings.HasPrefix(got, "803123") {
		t.Fatalf("expected phone digits preserved, got %s", got)
	}
}

func TestAccountNumberDisambiguates(t *testing.T) {
	first := AccountNumber("08031234567", 0)
	retry := AccountNumber("08031234567", 1)
	if len(retry) != 10 {
		t.Fatalf("expected 10 digits, got %q", retry)
	}
	if !strings.HasPrefix(retry, first[:6]) {
		t.Fatalf("expected shared prefix, got %s vs %s", first, retry)
	}
}
