// Package reference issues the unique identifiers used across the bank:
// transaction reference numbers and phone-derived account numbers.
package reference

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/securecipher/bankcore/internal/translog"
)

// ErrReferenceCollision surfaces after the bounded retry budget is exhausted.
// Callers treat it as an internal error; it is never expected in practice.
var ErrReferenceCollision = errors.New("reference number collision")

const (
	txnPrefix         = "TXN"
	txnRandomDigits   = 4
	accountNumberLen  = 10
	defaultMaxRetries = 5
)

// Generator produces transaction reference numbers that are unique across the
// lifetime of the system. Uniqueness is verified against the transaction log
// before a candidate is accepted.
type Generator struct {
	log        translog.Log
	now        func() time.Time
	maxRetries int
}

// NewGenerator builds a generator backed by the given transaction log.
func NewGenerator(log translog.Log) *Generator {
	return &Generator{log: log, now: time.Now, maxRetries: defaultMaxRetries}
}

// TransactionRef returns a fresh reference number: TXN + UTC timestamp +
// four random digits, retried on collision up to the bounded attempt count.
func (g *Generator) TransactionRef(ctx context.Context) (string, error) {
	stamp := g.now().UTC().Format("20060102150405")
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		candidate := txnPrefix + stamp + digits(txnRandomDigits)
		_, err := g.log.FindByReference(ctx, candidate)
		if errors.Is(err, translog.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", ErrReferenceCollision
}

// AccountNumber derives a ten-digit account number from the owner's phone
// number: country prefix and leading zero stripped, padded with random digits
// when short. attempt > 0 replaces the tail with fresh random digits to
// disambiguate collisions.
func AccountNumber(phone string, attempt int) string {
	cleaned := strings.NewReplacer("+234", "", " ", "", "-", "").Replace(phone)
	cleaned = strings.TrimLeft(cleaned, "0")

	var numeric strings.Builder
	for _, r := range cleaned {
		if r >= '0' && r <= '9' {
			numeric.WriteRune(r)
		}
	}
	base := numeric.String()

	if len(base) >= accountNumberLen {
		base = base[:accountNumberLen]
	}
	if attempt > 0 {
		// Disambiguating suffix: swap the last four digits.
		keep := len(base) - txnRandomDigits
		if keep < 0 {
			keep = 0
		}
		base = base[:keep]
	}
	if len(base) < accountNumberLen {
		base += digits(accountNumberLen - len(base))
	}
	return base
}

func digits(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d", rand.Intn(10))
	}
	return b.String()
}
