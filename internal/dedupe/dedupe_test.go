package dedupe

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStore_MarkIfNew(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	fresh, err := s.MarkIfNew(context.Background(), Fingerprint("msg-1", "https://youtu.be/a"))
	if err != nil {
		t.Fatalf("MarkIfNew() error = %v", err)
	}
	if !fresh {
		t.Fatal("first MarkIfNew() = false, want true")
	}

	fresh, err = s.MarkIfNew(context.Background(), Fingerprint("msg-1", "https://youtu.be/a"))
	if err != nil {
		t.Fatalf("MarkIfNew() error = %v", err)
	}
	if fresh {
		t.Fatal("repeat MarkIfNew() = true, want false")
	}
}

func TestMemoryStore_MessageScoping(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.MarkIfNew(context.Background(), Fingerprint("msg-1", "https://youtu.be/a"))
	fresh, err := s.MarkIfNew(context.Background(), Fingerprint("msg-2", "https://youtu.be/a"))
	if err != nil {
		t.Fatalf("MarkIfNew() error = %v", err)
	}
	if !fresh {
		t.Fatal("same URL in a new message should be fresh")
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	const workers = 16
	var wg sync.WaitGroup
	fresh := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.MarkIfNew(context.Background(), "shared")
			if err != nil {
				t.Errorf("MarkIfNew() error = %v", err)
				return
			}
			fresh <- ok
		}()
	}
	wg.Wait()
	close(fresh)

	wins := 0
	for ok := range fresh {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("concurrent MarkIfNew() wins = %d, want exactly 1", wins)
	}
}
