package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/feedbot/food"
	"github.com/onnwee/feedbot/testutil"
)

func TestRecordFeedingCreatesRecord(t *testing.T) {
	kv := testutil.NewMemKV()
	l := New(kv)
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	rec, err := l.RecordFeeding(ctx, "discord:100", food.Entry{Name: "Toast", Calories: 80}, now)
	if err != nil {
		t.Fatalf("RecordFeeding: %v", err)
	}
	if !rec.Created.Equal(now) {
		t.Errorf("Created = %v, want %v", rec.Created, now)
	}
	if rec.Calories != 80 {
		t.Errorf("Calories = %d, want 80", rec.Calories)
	}
	if len(rec.Eaten) != 1 || rec.Eaten[0] != "Toast" {
		t.Errorf("Eaten = %v, want [Toast]", rec.Eaten)
	}

	// The whole record is persisted as one JSON document
	raw, ok := kv.Value("discord:100")
	if !ok {
		t.Fatal("record not persisted")
	}
	var stored Record
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("stored record not valid JSON: %v", err)
	}
	if stored.Calories != 80 || len(stored.Eaten) != 1 {
		t.Errorf("stored record = %+v", stored)
	}
}

func TestRecordFeedingAppends(t *testing.T) {
	kv := testutil.NewMemKV()
	l := New(kv)
	ctx := context.Background()
	created := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	later := created.Add(24 * time.Hour)

	entries := []food.Entry{
		{Name: "Toast", Calories: 80},
		{Name: "French Toast (2 slices)", Calories: 250},
		{Name: "Caesar Salad", Calories: 190},
	}
	var rec Record
	var err error
	for i, e := range entries {
		when := created
		if i > 0 {
			when = later
		}
		rec, err = l.RecordFeeding(ctx, "discord:100", e, when)
		if err != nil {
			t.Fatalf("RecordFeeding %d: %v", i, err)
		}
	}

	if !rec.Created.Equal(created) {
		t.Errorf("Created moved on append: %v, want %v", rec.Created, created)
	}
	if want := 80 + 250 + 190; rec.Calories != want {
		t.Errorf("Calories = %d, want %d", rec.Calories, want)
	}
	if len(rec.Eaten) != 3 {
		t.Fatalf("Eaten = %v, want 3 items", rec.Eaten)
	}
	for i, e := range entries {
		if rec.Eaten[i] != e.Name {
			t.Errorf("Eaten[%d] = %q, want %q", i, rec.Eaten[i], e.Name)
		}
	}

	// Total always equals the sum of recorded items
	sum := 0
	for _, name := range rec.Eaten {
		for _, e := range entries {
			if e.Name == name {
				sum += e.Calories
				break
			}
		}
	}
	if sum != rec.Calories {
		t.Errorf("calorie total %d does not match eaten sum %d", rec.Calories, sum)
	}
}

func TestStatsNotFound(t *testing.T) {
	l := New(testutil.NewMemKV())
	_, err := l.Stats(context.Background(), "discord:404")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Stats error = %v, want ErrNotFound", err)
	}
}

func TestStatsReturnsRecord(t *testing.T) {
	kv := testutil.NewMemKV()
	l := New(kv)
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	if _, err := l.RecordFeeding(ctx, "twitch:alice", food.Entry{Name: "Toast", Calories: 80}, now); err != nil {
		t.Fatalf("RecordFeeding: %v", err)
	}

	rec, err := l.Stats(ctx, "twitch:alice")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if rec.Calories != 80 || len(rec.Eaten) != 1 {
		t.Errorf("Stats = %+v", rec)
	}
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	boom := errors.New("connection refused")

	t.Run("get error", func(t *testing.T) {
		kv := testutil.NewMemKV()
		kv.GetErr = boom
		l := New(kv)
		if _, err := l.RecordFeeding(ctx, "u", food.Entry{Name: "Toast", Calories: 80}, now); !errors.Is(err, boom) {
			t.Errorf("RecordFeeding error = %v, want wrapped %v", err, boom)
		}
		if _, err := l.Stats(ctx, "u"); !errors.Is(err, boom) {
			t.Errorf("Stats error = %v, want wrapped %v", err, boom)
		}
	})

	t.Run("set error leaves record unchanged", func(t *testing.T) {
		kv := testutil.NewMemKV()
		l := New(kv)
		if _, err := l.RecordFeeding(ctx, "u", food.Entry{Name: "Toast", Calories: 80}, now); err != nil {
			t.Fatalf("seed feeding: %v", err)
		}
		before, _ := kv.Value("u")

		kv.SetErr = boom
		if _, err := l.RecordFeeding(ctx, "u", food.Entry{Name: "Caesar Salad", Calories: 190}, now); !errors.Is(err, boom) {
			t.Errorf("RecordFeeding error = %v, want wrapped %v", err, boom)
		}

		after, _ := kv.Value("u")
		if before != after {
			t.Errorf("record changed despite failed write: %q -> %q", before, after)
		}
	})
}

func TestConcurrentFeedingsSameUser(t *testing.T) {
	kv := testutil.NewMemKV()
	l := New(kv)
	ctx := context.Background()
	now := time.Now()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := l.RecordFeeding(ctx, "discord:busy", food.Entry{Name: "Toast", Calories: 80}, now); err != nil {
				t.Errorf("RecordFeeding: %v", err)
			}
		}()
	}
	wg.Wait()

	rec, err := l.Stats(ctx, "discord:busy")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if rec.Calories != n*80 {
		t.Errorf("Calories = %d, want %d (lost updates)", rec.Calories, n*80)
	}
	if len(rec.Eaten) != n {
		t.Errorf("Eaten length = %d, want %d", len(rec.Eaten), n)
	}
}

func TestConcurrentFeedingsDifferentUsers(t *testing.T) {
	kv := testutil.NewMemKV()
	l := New(kv)
	ctx := context.Background()
	now := time.Now()

	users := []string{"discord:1", "discord:2", "twitch:a", "twitch:b"}
	const perUser = 10

	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			wg.Add(1)
			go func(u string) {
				defer wg.Done()
				if _, err := l.RecordFeeding(ctx, u, food.Entry{Name: "Toast", Calories: 80}, now); err != nil {
					t.Errorf("RecordFeeding %s: %v", u, err)
				}
			}(u)
		}
	}
	wg.Wait()

	for _, u := range users {
		rec, err := l.Stats(ctx, u)
		if err != nil {
			t.Fatalf("Stats %s: %v", u, err)
		}
		if rec.Calories != perUser*80 {
			t.Errorf("user %s Calories = %d, want %d", u, rec.Calories, perUser*80)
		}
	}
}

func TestCorruptRecordSurfacesError(t *testing.T) {
	kv := testutil.NewMemKV()
	kv.Seed("discord:bad", "{not json")
	l := New(kv)

	if _, err := l.Stats(context.Background(), "discord:bad"); err == nil {
		t.Error("expected decode error for corrupt record")
	}
}
