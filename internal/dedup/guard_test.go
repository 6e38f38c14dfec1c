package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCheckAndMark_FirstOfferOnly(t *testing.T) {
	guard := NewMemory(48 * time.Hour)

	if !guard.CheckAndMark("tweet-1") {
		t.Fatal("first offer should return true")
	}
	if guard.CheckAndMark("tweet-1") {
		t.Fatal("second offer of the same id should return false")
	}
	if !guard.CheckAndMark("tweet-2") {
		t.Fatal("a different id should return true")
	}
}

func TestCheckAndMark_ConcurrentSameID(t *testing.T) {
	guard := NewMemory(48 * time.Hour)

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if guard.CheckAndMark("contested") {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one winner, got %d", count)
	}
}

func TestCheckAndMark_ConcurrentDistinctIDs(t *testing.T) {
	guard := NewMemory(48 * time.Hour)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if !guard.CheckAndMark(fmt.Sprintf("id-%d", i)) {
				t.Errorf("fresh id id-%d reported as seen", i)
			}
		}(i)
	}
	wg.Wait()

	if guard.Len() != n {
		t.Errorf("expected %d tracked ids, got %d", n, guard.Len())
	}
}

func TestPrune_DropsExpiredOnly(t *testing.T) {
	guard := NewMemory(time.Hour)

	guard.CheckAndMark("old")
	guard.CheckAndMark("fresh")

	// Prune far in the future expires everything.
	guard.Prune(time.Now().Add(2 * time.Hour))
	if guard.Len() != 0 {
		t.Errorf("expected all ids pruned, got %d", guard.Len())
	}

	// A pruned id counts as new again.
	if !guard.CheckAndMark("old") {
		t.Error("pruned id should be accepted again")
	}
}

func TestPrune_KeepsIdsInsideRetention(t *testing.T) {
	guard := NewMemory(48 * time.Hour)

	guard.CheckAndMark("recent")
	guard.Prune(time.Now())

	if guard.Len() != 1 {
		t.Errorf("id inside retention window was pruned, len=%d", guard.Len())
	}
	if guard.CheckAndMark("recent") {
		t.Error("retained id must stay marked")
	}
}
