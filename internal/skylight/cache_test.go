package skylight

import (
	"errors"
	"testing"
	"time"
)

func TestCache_EmptyCurrent(t *testing.T) {
	cache := NewCache(time.Minute)

	snap, fresh := cache.Current()
	if fresh {
		t.Error("empty cache reported fresh")
	}
	if snap.Seq != 0 {
		t.Errorf("empty cache Seq = %d, want 0", snap.Seq)
	}
	if _, ok := cache.Age(); ok {
		t.Error("empty cache reported an age")
	}
}

func TestCache_StoreAndCurrent(t *testing.T) {
	cache := NewCache(time.Minute)

	stored := cache.Store(DeviceStatus{Name: "Tank Main", PWMFreq: 1000})

	snap, fresh := cache.Current()
	if !fresh {
		t.Error("just-stored snapshot reported stale")
	}
	if snap.Seq != 1 || snap.Seq != stored.Seq {
		t.Errorf("Seq = %d, want 1", snap.Seq)
	}
	if snap.Status.Name != "Tank Main" {
		t.Errorf("Status.Name = %q", snap.Status.Name)
	}
}

func TestCache_SequenceIncreases(t *testing.T) {
	cache := NewCache(time.Minute)

	for i := 1; i <= 3; i++ {
		snap := cache.Store(DeviceStatus{})
		if snap.Seq != uint64(i) {
			t.Errorf("Store %d: Seq = %d", i, snap.Seq)
		}
	}
}

func TestCache_Staleness(t *testing.T) {
	cache := NewCache(20 * time.Millisecond)
	cache.Store(DeviceStatus{Name: "Tank Main"})

	if _, fresh := cache.Current(); !fresh {
		t.Fatal("snapshot stale immediately after store")
	}

	time.Sleep(40 * time.Millisecond)

	snap, fresh := cache.Current()
	if fresh {
		t.Error("snapshot still fresh past the threshold")
	}
	// Stale, but the data itself survives.
	if snap.Status.Name != "Tank Main" {
		t.Errorf("stale snapshot lost data: %q", snap.Status.Name)
	}

	// A new store clears staleness and replaces the snapshot wholesale.
	cache.Store(DeviceStatus{Name: "Renamed"})
	snap, fresh = cache.Current()
	if !fresh || snap.Status.Name != "Renamed" || snap.Seq != 2 {
		t.Errorf("after restore: fresh=%v snap=%+v", fresh, snap)
	}
}

func TestCache_RefreshParsesAndStores(t *testing.T) {
	cache := NewCache(time.Minute)

	snap, err := cache.Refresh(fullStatusPage())
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if snap.Status.Name != "Tank Main" || snap.Seq != 1 {
		t.Errorf("Refresh() snapshot = %+v", snap)
	}
}

func TestCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.Store(DeviceStatus{Name: "Tank Main", ScheduleItems: 6})

	if _, err := cache.Refresh(""); !errors.Is(err, ErrCodec) {
		t.Fatalf("Refresh(empty) = %v, want ErrCodec", err)
	}

	snap, _ := cache.Current()
	if snap.Status.Name != "Tank Main" || snap.Status.ScheduleItems != 6 || snap.Seq != 1 {
		t.Errorf("failed refresh disturbed the snapshot: %+v", snap)
	}
}
