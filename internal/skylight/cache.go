package skylight

import (
	"sync/atomic"
	"time"
)

// Snapshot pairs a parsed DeviceStatus with its poll bookkeeping.
// Snapshots are immutable; the cache publishes a new one wholesale on
// every successful poll.
type Snapshot struct {
	Status DeviceStatus `json:"status"`

	// Seq is a monotonically increasing poll sequence number.
	Seq uint64 `json:"seq"`

	// UpdatedAt is when this snapshot was stored.
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache holds the last successfully parsed status snapshot for one
// lamp plus staleness metadata.
//
// Thread Safety:
//   - Current never blocks and takes no lock: readers load an
//     immutable snapshot via a single atomic pointer read.
//   - Store is called only by the owning session's goroutine.
//   - A failed poll never touches the cache, so the last good
//     snapshot survives any run of failures.
type Cache struct {
	current    atomic.Pointer[Snapshot]
	seq        atomic.Uint64
	staleAfter time.Duration
}

// NewCache creates a cache with the given staleness threshold.
// A snapshot older than the threshold is still returned by Current,
// just flagged as stale.
func NewCache(staleAfter time.Duration) *Cache {
	return &Cache{staleAfter: staleAfter}
}

// Current returns the most recent snapshot and whether it is fresh.
//
// Returns:
//   - Snapshot: The last good snapshot (zero value if none yet)
//   - bool: false when no snapshot exists or its age exceeds the
//     staleness threshold
func (c *Cache) Current() (Snapshot, bool) {
	snap := c.current.Load()
	if snap == nil {
		return Snapshot{}, false
	}
	return *snap, time.Since(snap.UpdatedAt) <= c.staleAfter
}

// Refresh parses a raw status page and publishes it as the new
// current snapshot.
//
// Returns:
//   - Snapshot: The snapshot just stored
//   - error: ErrCodec if the status page is malformed; the previous
//     snapshot is left untouched in that case
func (c *Cache) Refresh(raw string) (Snapshot, error) {
	status, err := ParseStatusPage(raw)
	if err != nil {
		return Snapshot{}, err
	}
	return c.Store(status), nil
}

// Store publishes a parsed status as the new current snapshot via one
// atomic pointer swap. Readers never observe a torn snapshot.
func (c *Cache) Store(status DeviceStatus) Snapshot {
	snap := &Snapshot{
		Status:    status,
		Seq:       c.seq.Add(1),
		UpdatedAt: time.Now(),
	}
	c.current.Store(snap)
	return *snap
}

// Age returns how old the current snapshot is, or false if no
// snapshot has been stored yet.
func (c *Cache) Age() (time.Duration, bool) {
	snap := c.current.Load()
	if snap == nil {
		return 0, false
	}
	return time.Since(snap.UpdatedAt), true
}
