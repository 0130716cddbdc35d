package cache

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestStore_RoundTripProperty(t *testing.T) {
	s := newTestStore(t, Config{})

	rapid.Check(t, func(t *rapid.T) {
		content := rapid.String().Draw(t, "content")
		target := rapid.SampledFrom([]string{"claude", "openai", "cursor", "universal"}).Draw(t, "target")
		payload := rapid.SliceOfN(rapid.Byte(), 1, 4096).Draw(t, "payload")

		key := Fingerprint(content, target, "default")
		if err := s.Put(key, payload, time.Hour, nil); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, err := s.Get(key)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got) != string(payload) {
			t.Fatalf("payload mismatch for %s", shortKey(key))
		}
	})
}

// As long as no single blob exceeds the budget, the store never does either.
func TestStore_SizeBudgetProperty(t *testing.T) {
	const budget = 8192
	s := newTestStore(t, Config{MaxSizeBytes: budget})

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, budget).Draw(t, "size")
		key := rapid.StringMatching(`[a-f0-9]{16}`).Draw(t, "key")

		if err := s.Put(key, make([]byte, n), time.Hour, nil); err != nil {
			t.Fatalf("put: %v", err)
		}
		total, err := s.TotalSize()
		if err != nil {
			t.Fatalf("total size: %v", err)
		}
		if total > budget {
			t.Fatalf("budget exceeded: %d > %d", total, budget)
		}
	})
}
