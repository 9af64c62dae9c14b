// Package ledger tracks per-user feeding history and calorie totals.
//
// Each user has one JSON record in the users namespace of the kv store. The
// record is append-only: feedings add to the eaten list and the calorie
// total, and the total always equals the sum of the recorded items.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/onnwee/feedbot/food"
)

// ErrNotFound is returned by Stats for users with no record.
var ErrNotFound = errors.New("user not found")

// Store is the minimal kv surface the ledger needs. *db.KV satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Record is one user's feeding history.
type Record struct {
	Created  time.Time `json:"created"`
	Calories int       `json:"calories"`
	Eaten    []string  `json:"eaten"`
}

// Ledger persists one Record per user id. Updates to the same user are
// serialized on a per-user lock so concurrent feedings cannot drop each
// other; different users proceed independently.
type Ledger struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a Ledger over the given store.
func New(store Store) *Ledger {
	return &Ledger{store: store, locks: make(map[string]*sync.Mutex)}
}

func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[userID]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[userID] = lk
	}
	return lk
}

// RecordFeeding appends entry to the user's history and adds its calories,
// creating the record on first feeding with Created = now. The whole updated
// record is persisted in a single write and returned. On any store error the
// persisted record is left untouched.
func (l *Ledger) RecordFeeding(ctx context.Context, userID string, entry food.Entry, now time.Time) (Record, error) {
	lk := l.userLock(userID)
	lk.Lock()
	defer lk.Unlock()

	rec, ok, err := l.load(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		rec = Record{Created: now.UTC()}
	}
	rec.Eaten = append(rec.Eaten, entry.Name)
	rec.Calories += entry.Calories

	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode record for user %s: %w", userID, err)
	}
	if err := l.store.Set(ctx, userID, string(raw)); err != nil {
		return Record{}, fmt.Errorf("persist record for user %s: %w", userID, err)
	}
	return rec, nil
}

// Stats returns the user's record, or ErrNotFound when the user has never
// been fed.
func (l *Ledger) Stats(ctx context.Context, userID string) (Record, error) {
	rec, ok, err := l.load(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return rec, nil
}

func (l *Ledger) load(ctx context.Context, userID string) (Record, bool, error) {
	raw, ok, err := l.store.Get(ctx, userID)
	if err != nil {
		return Record{}, false, fmt.Errorf("load record for user %s: %w", userID, err)
	}
	if !ok {
		return Record{}, false, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode record for user %s: %w", userID, err)
	}
	return rec, true, nil
}
