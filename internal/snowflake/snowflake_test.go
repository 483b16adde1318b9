package snowflake

import (
	"testing"
	"time"
)

func TestNewRejectsOutOfRangeWorker(t *testing.T) {
	if _, err := New(maxWorkerValue + 1); err == nil {
		t.Error("expected error for worker ID above maximum")
	}
	if _, err := New(-1); err == nil {
		t.Error("expected error for negative worker ID")
	}
}

func TestGenerateIsMonotonic(t *testing.T) {
	gen, err := New(1)
	if err != nil {
		t.Fatal(err)
	}

	var last int64
	for i := 0; i < 1000; i++ {
		id, err := gen.Generate()
		if err != nil {
			// increment overflow within a single millisecond is acceptable
			return
		}
		if id <= last {
			t.Fatalf("expected strictly increasing IDs, got %d after %d", id, last)
		}
		last = id
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	gen, err := New(0)
	if err != nil {
		t.Fatal(err)
	}

	before := time.Now().Truncate(time.Millisecond)
	id, err := gen.Generate()
	if err != nil {
		t.Fatal(err)
	}

	ts := Timestamp(id)
	if ts.Before(before) || ts.After(time.Now()) {
		t.Errorf("extracted timestamp %v is outside the generation window", ts)
	}
}
