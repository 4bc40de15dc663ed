package skylight

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeLamp is an httptest-backed firmware double. It records every
// schedule-endpoint request, echoes channel writes back through the
// status page, and can be told to fail or hang on demand.
type fakeLamp struct {
	mu             sync.Mutex
	channels       [4]float64
	scheduleItems  int
	scheduleString string
	statusHits     int
	requests       []recordedRequest
	intervals      [][2]time.Time
	delay          time.Duration
	hangCtrl       string
	hangFor        time.Duration
	failStatus     bool
}

type recordedRequest struct {
	kind  string
	value string
}

func (f *fakeLamp) handler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/statusPage" {
		f.mu.Lock()
		f.statusHits++
		fail := f.failStatus
		body := f.statusBodyLocked()
		f.mu.Unlock()

		if fail {
			http.Error(w, "firmware busy", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, body)
		return
	}

	start := time.Now()
	q := r.URL.Query()
	kind, value := "params", q.Get("params")
	if q.Has("ctrl") {
		kind, value = "ctrl", q.Get("ctrl")
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{kind: kind, value: value})
	delay := f.delay
	hang := kind == "ctrl" && f.hangCtrl != "" && value == f.hangCtrl
	hangFor := f.hangFor
	schedString := f.scheduleString
	f.mu.Unlock()

	if hang {
		time.Sleep(hangFor)
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	response := "OK"
	switch {
	case kind == "ctrl" && strings.HasPrefix(value, "74"):
		if cs, _, err := parseChannelBody(value[2:]); err == nil {
			f.mu.Lock()
			f.channels = cs.Values
			f.mu.Unlock()
		}
	case kind == "ctrl" && value == "g31":
		response = schedString
	case kind == "params" && value == "n1":
		response = "2.0.1"
	}

	// Record the interval before the response goes out so a recorded
	// end never lands after the client has already issued its next
	// request.
	f.mu.Lock()
	f.intervals = append(f.intervals, [2]time.Time{start, time.Now()})
	f.mu.Unlock()

	fmt.Fprint(w, response)
}

func (f *fakeLamp) statusBodyLocked() string {
	raw := func(pct float64) string {
		return strconv.FormatFloat(pct*255.0/100.0, 'g', -1, 64)
	}
	return strings.Join([]string{
		hex.EncodeToString([]byte("Tank Main")) + "\t" + hex.EncodeToString([]byte("SL-120")) + "\tAABBCCDDEEFF\t1\t\t1",
		"1\t2026-08-31\t12:00:00",
		fmt.Sprintf("1000\t%s\t%s\t%s\t%s\t50\t3\t128\t0",
			raw(f.channels[0]), raw(f.channels[1]), raw(f.channels[2]), raw(f.channels[3])),
		fmt.Sprintf("0\t%d\t0", f.scheduleItems),
	}, "\n")
}

func (f *fakeLamp) paramsValues() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var values []string
	for _, req := range f.requests {
		if req.kind == "params" {
			values = append(values, req.value)
		}
	}
	return values
}

func newTestSession(t *testing.T, lamp *fakeLamp, commandTimeout time.Duration) *Session {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(lamp.handler))
	t.Cleanup(srv.Close)

	session := NewSession(
		Endpoint{ID: "tank-main", Host: strings.TrimPrefix(srv.URL, "http://"), Name: "Tank Main"},
		SessionConfig{
			PollInterval:       time.Hour,
			StalenessThreshold: time.Minute,
			CommandTimeout:     commandTimeout,
			PollTimeout:        2 * time.Second,
		},
		nil,
	)
	session.Start()
	t.Cleanup(session.Close)
	return session
}

func TestSession_ChannelEcho(t *testing.T) {
	lamp := &fakeLamp{}
	session := newTestSession(t, lamp, 2*time.Second)
	ctx := context.Background()

	if _, err := session.SetAllChannels(ctx, [4]float64{10, 20, 30, 40}, 1, 100); err != nil {
		t.Fatalf("SetAllChannels() error: %v", err)
	}

	snap, err := session.Status(ctx, true)
	if err != nil {
		t.Fatalf("Status(force) error: %v", err)
	}
	want := [4]float64{10, 20, 30, 40}
	if snap.Status.Channels != want {
		t.Errorf("Channels = %v, want %v", snap.Status.Channels, want)
	}
	if snap.Status.FirmwareVersion != "2.0.1" {
		t.Errorf("FirmwareVersion = %q, want 2.0.1", snap.Status.FirmwareVersion)
	}
}

func TestSession_CommandsNeverOverlap(t *testing.T) {
	lamp := &fakeLamp{delay: 30 * time.Millisecond}
	session := newTestSession(t, lamp, 5*time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := session.ReadLEDStatus(ctx); err != nil {
				t.Errorf("ReadLEDStatus() error: %v", err)
			}
		}()
	}
	wg.Wait()

	lamp.mu.Lock()
	intervals := append([][2]time.Time(nil), lamp.intervals...)
	lamp.mu.Unlock()

	sort.Slice(intervals, func(i, j int) bool { return intervals[i][0].Before(intervals[j][0]) })
	for i := 1; i < len(intervals); i++ {
		if intervals[i][0].Before(intervals[i-1][1]) {
			t.Fatalf("request %d started at %v before request %d finished at %v",
				i, intervals[i][0], i-1, intervals[i-1][1])
		}
	}
}

func TestSession_TimeoutSurfacedCacheIntact(t *testing.T) {
	lamp := &fakeLamp{scheduleItems: 6, hangCtrl: "gt01", hangFor: 600 * time.Millisecond}
	session := newTestSession(t, lamp, 150*time.Millisecond)
	ctx := context.Background()

	before, err := session.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll() error: %v", err)
	}

	_, err = session.SetNightMode(ctx, true)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("SetNightMode() = %v, want ErrTransport", err)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("SetNightMode() = %v, want ErrTimeout", err)
	}

	after, _ := session.Current()
	if after.Seq != before.Seq {
		t.Errorf("failed command triggered a refresh: seq %d -> %d", before.Seq, after.Seq)
	}
	if after.Status.ScheduleItems != 6 || after.Status.CloneCount != before.Status.CloneCount {
		t.Errorf("failed command disturbed the cache: %+v", after.Status)
	}
}

func TestSession_PostCommandRefresh(t *testing.T) {
	lamp := &fakeLamp{}
	session := newTestSession(t, lamp, 2*time.Second)
	ctx := context.Background()

	if _, err := session.Poll(ctx); err != nil {
		t.Fatalf("Poll() error: %v", err)
	}
	lamp.mu.Lock()
	hitsBefore := lamp.statusHits
	lamp.mu.Unlock()

	if _, err := session.SetChannel(ctx, 0, 50); err != nil {
		t.Fatalf("SetChannel() error: %v", err)
	}

	// The refresh runs on the session goroutine right after the
	// command; give it a moment.
	deadline := time.Now().Add(time.Second)
	for {
		lamp.mu.Lock()
		hits := lamp.statusHits
		lamp.mu.Unlock()
		if hits > hitsBefore {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no out-of-cycle poll after successful command")
		}
		time.Sleep(5 * time.Millisecond)
	}

	snap, _ := session.Current()
	if snap.Status.Channels[0] != 50 {
		t.Errorf("cache does not reflect applied change: %v", snap.Status.Channels)
	}
}

func TestSession_StatusServedFromFreshCache(t *testing.T) {
	lamp := &fakeLamp{}
	session := newTestSession(t, lamp, 2*time.Second)
	ctx := context.Background()

	if _, err := session.Poll(ctx); err != nil {
		t.Fatalf("Poll() error: %v", err)
	}
	lamp.mu.Lock()
	hitsBefore := lamp.statusHits
	lamp.mu.Unlock()

	for i := 0; i < 3; i++ {
		if _, err := session.Status(ctx, false); err != nil {
			t.Fatalf("Status() error: %v", err)
		}
	}

	lamp.mu.Lock()
	hitsAfter := lamp.statusHits
	lamp.mu.Unlock()
	if hitsAfter != hitsBefore {
		t.Errorf("fresh-cache reads hit the network: %d -> %d", hitsBefore, hitsAfter)
	}
}

func TestSession_PollFailureAbsorbed(t *testing.T) {
	lamp := &fakeLamp{failStatus: true}
	session := newTestSession(t, lamp, 2*time.Second)
	ctx := context.Background()

	if _, err := session.Poll(ctx); !errors.Is(err, ErrHTTPStatus) {
		t.Fatalf("Poll() = %v, want ErrHTTPStatus", err)
	}
	if session.ConsecutiveFailures() == 0 {
		t.Error("failure counter not incremented")
	}
	if _, fresh := session.Current(); fresh {
		t.Error("cache fresh despite no successful poll")
	}

	lamp.mu.Lock()
	lamp.failStatus = false
	lamp.mu.Unlock()

	snap, err := session.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll() after recovery error: %v", err)
	}
	if session.ConsecutiveFailures() != 0 {
		t.Errorf("failure counter = %d after success", session.ConsecutiveFailures())
	}
	if snap.Status.Name != "Tank Main" {
		t.Errorf("recovered snapshot = %+v", snap.Status)
	}
}

func TestSession_WriteSchedulePipeline(t *testing.T) {
	lamp := &fakeLamp{}
	session := newTestSession(t, lamp, 2*time.Second)
	ctx := context.Background()

	schedule := sampleSafe()
	wire, err := Encode(schedule)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	result, err := session.WriteSchedule(ctx, schedule)
	if err != nil {
		t.Fatalf("WriteSchedule() error: %v", err)
	}
	if result.Payload != wire {
		t.Errorf("result payload = %q, want %q", result.Payload, wire)
	}

	wantOrder := []string{"4", "p_2", "s_" + wire, "6"}
	values := lamp.paramsValues()
	idx := 0
	for _, v := range values {
		if idx < len(wantOrder) && v == wantOrder[idx] {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Errorf("pipeline requests %v missing ordered sequence %v", values, wantOrder)
	}
}

func TestSession_WriteScheduleValidatesFirst(t *testing.T) {
	lamp := &fakeLamp{}
	session := newTestSession(t, lamp, 2*time.Second)
	ctx := context.Background()

	if _, err := session.Poll(ctx); err != nil {
		t.Fatalf("Poll() error: %v", err)
	}
	lamp.mu.Lock()
	requestsBefore := len(lamp.requests)
	lamp.mu.Unlock()

	bad := &Schedule{
		Variant: VariantSafe,
		Entries: []Entry{{Hour: 25, Preset: "A1", Power: 50}},
	}
	if _, err := session.WriteSchedule(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("WriteSchedule(bad) = %v, want ErrValidation", err)
	}

	lamp.mu.Lock()
	requestsAfter := len(lamp.requests)
	lamp.mu.Unlock()
	if requestsAfter != requestsBefore {
		t.Error("invalid schedule reached the device")
	}
}

func TestSession_ReadSchedule(t *testing.T) {
	schedule := sampleSafe()
	wire, err := Encode(schedule)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	lamp := &fakeLamp{scheduleString: wire}
	session := newTestSession(t, lamp, 2*time.Second)
	ctx := context.Background()

	decoded, err := session.ReadSchedule(ctx, VariantSafe)
	if err != nil {
		t.Fatalf("ReadSchedule() error: %v", err)
	}
	if len(decoded.Entries) != len(schedule.Entries) {
		t.Errorf("decoded %d entries, want %d", len(decoded.Entries), len(schedule.Entries))
	}

	if _, err := session.ReadSchedule(ctx, VariantOld); !errors.Is(err, ErrCodec) {
		t.Errorf("ReadSchedule(wrong variant) = %v, want ErrCodec", err)
	}
}

func TestSession_ApplyPreset(t *testing.T) {
	lamp := &fakeLamp{}
	session := newTestSession(t, lamp, 2*time.Second)
	ctx := context.Background()

	if _, err := session.ApplyPreset(ctx, "C5", 70); err != nil {
		t.Fatalf("ApplyPreset() error: %v", err)
	}

	if session.SelectedPreset() != "C5" || session.Power() != 70 {
		t.Errorf("selection = %q/%d, want C5/70", session.SelectedPreset(), session.Power())
	}

	lamp.mu.Lock()
	defer lamp.mu.Unlock()
	var sawManual, sawPreset bool
	for _, req := range lamp.requests {
		if req.kind == "params" && req.value == "9" {
			sawManual = true
		}
		if req.kind == "ctrl" && strings.HasPrefix(req.value, "74") && strings.HasSuffix(req.value, "l70m") {
			sawPreset = true
		}
	}
	if !sawManual || !sawPreset {
		t.Errorf("preset application incomplete: manual=%v preset=%v requests=%v",
			sawManual, sawPreset, lamp.requests)
	}
}

func TestSession_ApplyPreset_Validation(t *testing.T) {
	lamp := &fakeLamp{}
	session := newTestSession(t, lamp, 2*time.Second)

	if _, err := session.ApplyPreset(context.Background(), "Z9", 50); !errors.Is(err, ErrValidation) {
		t.Errorf("ApplyPreset(Z9) = %v, want ErrValidation", err)
	}
}

func TestSession_ClosedRejectsCommands(t *testing.T) {
	lamp := &fakeLamp{}
	session := newTestSession(t, lamp, 2*time.Second)

	session.Close()

	if _, err := session.SetChannel(context.Background(), 0, 50); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SetChannel() after Close = %v, want ErrSessionClosed", err)
	}
}

func TestSession_UpdateCallbacks(t *testing.T) {
	lamp := &fakeLamp{}

	srv := httptest.NewServer(http.HandlerFunc(lamp.handler))
	t.Cleanup(srv.Close)

	session := NewSession(
		Endpoint{ID: "tank-main", Host: strings.TrimPrefix(srv.URL, "http://")},
		SessionConfig{
			PollInterval:       time.Hour,
			StalenessThreshold: time.Minute,
			CommandTimeout:     2 * time.Second,
			PollTimeout:        2 * time.Second,
		},
		nil,
	)

	updates := make(chan Snapshot, 8)
	session.OnUpdate(func(_ Endpoint, snap Snapshot) {
		updates <- snap
	})

	session.Start()
	t.Cleanup(session.Close)

	select {
	case snap := <-updates:
		if snap.Status.Name != "Tank Main" {
			t.Errorf("callback snapshot = %+v", snap.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update callback after initial poll")
	}
}
