package contribution

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultLedgerTTL bounds how long a draft reference is remembered.
const DefaultLedgerTTL = 24 * time.Hour

// ReservationState describes the outcome of reserving a draft reference.
type ReservationState int

const (
	// ReservationNew means the caller owns the submission and must Complete or Fail it.
	ReservationNew ReservationState = iota
	ReservationPending
	ReservationCompleted
	ReservationFailed
)

type ledgerStatus int

const (
	statusPending ledgerStatus = iota
	statusCompleted
	statusFailed
)

// Reservation is returned by Ledger.Reserve.
type Reservation struct {
	State       ReservationState
	RedirectURL string
}

type ledgerRecord struct {
	status      ledgerStatus
	redirectURL string
	createdAt   time.Time
	updatedAt   time.Time
	expiresAt   time.Time
}

// Ledger remembers draft references so a draft is handed off at most once across
// concurrent requests and replayed session cookies. It only vouches for references minted
// after it was created and younger than its ttl; see Covers.
type Ledger struct {
	mu      sync.Mutex
	ttl     time.Duration
	since   time.Time
	records map[string]ledgerRecord
}

// NewLedger constructs an empty ledger. Non-positive ttl uses DefaultLedgerTTL.
func NewLedger(ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &Ledger{
		ttl:     ttl,
		since:   time.Now().UTC().Truncate(time.Millisecond),
		records: make(map[string]ledgerRecord),
	}
}

// Covers reports whether ref was minted while this ledger has been tracking references and is
// still young enough that any record of it has not expired. Records live for ttl after their
// last update, so a reference younger than ttl can never outlive its record.
func (l *Ledger) Covers(ref string, now time.Time) bool {
	id, err := ulid.ParseStrict(ref)
	if err != nil {
		return false
	}
	minted := ulid.Time(id.Time()).UTC()
	return !minted.Before(l.since) && now.UTC().Sub(minted) < l.ttl
}

// Reserve claims key for submission or reports what happened to it before.
func (l *Ledger) Reserve(key string, now time.Time) Reservation {
	now = now.UTC()
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[key]
	if !ok || !now.Before(record.expiresAt) {
		l.records[key] = ledgerRecord{
			status:    statusPending,
			createdAt: now,
			updatedAt: now,
			expiresAt: now.Add(l.ttl),
		}
		return Reservation{State: ReservationNew}
	}

	switch record.status {
	case statusCompleted:
		return Reservation{State: ReservationCompleted, RedirectURL: record.redirectURL}
	case statusFailed:
		return Reservation{State: ReservationFailed}
	default:
		return Reservation{State: ReservationPending}
	}
}

// Complete records a successful hand-off and the redirect to replay.
func (l *Ledger) Complete(key, redirectURL string, now time.Time) {
	l.finish(key, statusCompleted, redirectURL, now)
}

// Fail records a failed hand-off. Failed drafts are never submitted again.
func (l *Ledger) Fail(key string, now time.Time) {
	l.finish(key, statusFailed, "", now)
}

func (l *Ledger) finish(key string, status ledgerStatus, redirectURL string, now time.Time) {
	now = now.UTC()
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[key]
	if !ok {
		record = ledgerRecord{createdAt: now}
	}
	record.status = status
	record.redirectURL = redirectURL
	record.updatedAt = now
	record.expiresAt = now.Add(l.ttl)
	l.records[key] = record
}

// CleanupExpired removes up to limit expired records. Non-positive limit removes all.
func (l *Ledger) CleanupExpired(now time.Time, limit int) int {
	now = now.UTC()
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}

	removed := 0
	for key, record := range l.records {
		if now.Before(record.expiresAt) {
			continue
		}
		delete(l.records, key)
		removed++
		if removed >= limit {
			break
		}
	}
	return removed
}

// Len reports the number of tracked references.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
