package skylight

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Endpoint is the identity of one physical lamp: a host to reach it at
// and an optional display name. Immutable after creation; each
// endpoint owns exactly one Session.
type Endpoint struct {
	ID   string `json:"id"`
	Host string `json:"host"`
	Name string `json:"name,omitempty"`
}

// SessionConfig carries the timing parameters of one session.
type SessionConfig struct {
	PollInterval       time.Duration
	StalenessThreshold time.Duration
	CommandTimeout     time.Duration
	PollTimeout        time.Duration
}

// CommandResult is the outcome of one dispatched command. Transient;
// never persisted.
type CommandResult struct {
	// ID correlates the command across logs, acks and API responses.
	ID string `json:"id"`

	Operation string `json:"operation"`

	// Payload is the raw response text the device echoed, if any.
	Payload string `json:"payload,omitempty"`

	// Timestamp is when the command completed. For sync_rtc it is the
	// timestamp the caller asked the device clock to match.
	Timestamp time.Time `json:"timestamp"`
}

// UpdateFunc receives cache-updated notifications. Callbacks run on
// the session's own goroutine and must not block.
type UpdateFunc func(Endpoint, Snapshot)

// Logger is the minimal logging surface the session needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Session owns all network I/O for one lamp. A single goroutine
// executes polls and commands, which gives the engine's core ordering
// guarantee for free: at most one in-flight network operation per
// endpoint, commands totally ordered, never interleaved.
//
// Commands are not retried automatically. A write whose delivery
// status is unknown must not be repeated blindly, so transport
// failures during commands surface to the caller immediately. Poll
// failures are absorbed: the failure counter grows, the cache goes
// stale but keeps its last good snapshot, and polling continues
// indefinitely.
//
// After every successful mutating command the session polls
// immediately, out of cycle, so the cache reflects the just-applied
// change. This is a contract, not an optimization; consumers rely on
// it to mask the device's eventual consistency.
type Session struct {
	endpoint  Endpoint
	cfg       SessionConfig
	transport *Transport
	cache     *Cache
	logger    Logger

	requests chan *sessionRequest
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	failures atomic.Int64

	// firmware is fetched on the first successful poll and reused.
	// Only the session goroutine touches it.
	firmware string

	// Preset selection state, readable from any goroutine.
	prefMu         sync.RWMutex
	selectedPreset string
	power          int

	updateMu sync.RWMutex
	updates  []UpdateFunc
}

type sessionRequest struct {
	ctx      context.Context
	op       string
	mutating bool
	exec     func(ctx context.Context) (string, error)
	resp     chan sessionResult
}

type sessionResult struct {
	payload string
	err     error
}

// NewSession creates a session for the endpoint. Call Start to begin
// polling; until then no network traffic occurs.
func NewSession(endpoint Endpoint, cfg SessionConfig, logger Logger) *Session {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Session{
		endpoint:       endpoint,
		cfg:            cfg,
		transport:      NewTransport(endpoint.Host, cfg.CommandTimeout),
		cache:          NewCache(cfg.StalenessThreshold),
		logger:         logger,
		requests:       make(chan *sessionRequest),
		done:           make(chan struct{}),
		selectedPreset: "A1",
		power:          DefaultPower,
	}
}

// Start launches the session goroutine and performs the first poll.
func (s *Session) Start() {
	s.wg.Add(1)
	go s.run()
}

// Close tears the session down. Pending polls are cancelled; an
// in-flight command is allowed to complete so the device is not left
// mid-write. Safe to call more than once.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// Endpoint returns the lamp identity this session serves.
func (s *Session) Endpoint() Endpoint {
	return s.endpoint
}

// OnUpdate registers a cache-updated callback.
func (s *Session) OnUpdate(fn UpdateFunc) {
	s.updateMu.Lock()
	s.updates = append(s.updates, fn)
	s.updateMu.Unlock()
}

// Current returns the cached snapshot and its freshness without
// touching the network.
func (s *Session) Current() (Snapshot, bool) {
	return s.cache.Current()
}

// ConsecutiveFailures returns how many polls have failed since the
// last successful one.
func (s *Session) ConsecutiveFailures() int {
	return int(s.failures.Load())
}

// SelectedPreset returns the preset last applied through this session.
func (s *Session) SelectedPreset() string {
	s.prefMu.RLock()
	defer s.prefMu.RUnlock()
	return s.selectedPreset
}

// Power returns the output power used when applying presets.
func (s *Session) Power() int {
	s.prefMu.RLock()
	defer s.prefMu.RUnlock()
	return s.power
}

func (s *Session) run() {
	defer s.wg.Done()

	s.poll()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			s.drain()
			return
		case <-ticker.C:
			s.poll()
		case req := <-s.requests:
			s.execute(req)
		}
	}
}

// drain answers queued requests that arrived during shutdown.
func (s *Session) drain() {
	for {
		select {
		case req := <-s.requests:
			req.resp <- sessionResult{err: ErrSessionClosed}
		default:
			return
		}
	}
}

func (s *Session) execute(req *sessionRequest) {
	payload, err := req.exec(req.ctx)
	req.resp <- sessionResult{payload: payload, err: err}

	// Refresh immediately after a successful write so readers see the
	// applied change before the next periodic tick.
	if err == nil && req.mutating {
		s.poll()
	}
}

// poll runs one periodic poll, absorbing any failure.
func (s *Session) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PollTimeout)
	defer cancel()
	_ = s.pollOnce(ctx)
}

// pollOnce fetches and publishes one status snapshot. Runs only on the
// session goroutine. Failures leave the cache untouched and bump the
// consecutive-failure counter.
func (s *Session) pollOnce(ctx context.Context) error {
	raw, err := s.transport.StatusPage(ctx)
	if err != nil {
		return s.pollFailed(err)
	}
	status, err := ParseStatusPage(raw)
	if err != nil {
		return s.pollFailed(err)
	}

	if s.firmware == "" {
		s.firmware = s.fetchFirmwareVersion(ctx)
	}
	status.FirmwareVersion = s.firmware

	// Best effort: the raw schedule string enriches the snapshot but
	// its absence does not fail the poll.
	if sched, err := s.transport.Send(ctx, EncodeReadScheduleString()); err == nil {
		status.RawSchedule = sched
	}

	s.failures.Store(0)
	snap := s.cache.Store(status)
	s.notify(snap)
	return nil
}

func (s *Session) pollFailed(err error) error {
	n := s.failures.Add(1)
	s.logger.Warn("status poll failed",
		"lamp_id", s.endpoint.ID,
		"consecutive_failures", n,
		"error", err,
	)
	return err
}

// fetchFirmwareVersion reads the firmware version, falling back to the
// legacy command on firmwares that predate the n1 read.
func (s *Session) fetchFirmwareVersion(ctx context.Context) string {
	version, err := s.transport.Send(ctx, EncodeReadFirmwareVersion(false))
	if err == nil && version != "" {
		return version
	}
	version, err = s.transport.Send(ctx, EncodeReadFirmwareVersion(true))
	if err != nil {
		s.logger.Debug("firmware version read failed", "lamp_id", s.endpoint.ID, "error", err)
		return ""
	}
	return version
}

func (s *Session) notify(snap Snapshot) {
	s.updateMu.RLock()
	callbacks := s.updates
	s.updateMu.RUnlock()
	for _, fn := range callbacks {
		fn(s.endpoint, snap)
	}
}

// submit hands a request to the session goroutine and waits for the
// result. This is the only path from caller contexts into the
// serialized execution context.
func (s *Session) submit(ctx context.Context, op string, mutating bool, exec func(context.Context) (string, error)) (CommandResult, error) {
	req := &sessionRequest{
		ctx:      ctx,
		op:       op,
		mutating: mutating,
		exec:     exec,
		resp:     make(chan sessionResult, 1),
	}

	select {
	case s.requests <- req:
	case <-s.done:
		return CommandResult{}, fmt.Errorf("%s: %w", op, ErrSessionClosed)
	case <-ctx.Done():
		return CommandResult{}, fmt.Errorf("%s: %w: %w", op, ErrTimeout, ctx.Err())
	}

	res := <-req.resp
	if res.err != nil {
		return CommandResult{}, fmt.Errorf("%s: %w", op, res.err)
	}
	return CommandResult{
		ID:        uuid.NewString(),
		Operation: op,
		Payload:   res.payload,
		Timestamp: time.Now(),
	}, nil
}

// sendRequest is the common exec body for single-request commands.
func (s *Session) sendRequest(req Request) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return s.transport.Send(ctx, req)
	}
}

// Poll forces an immediate out-of-cycle poll through the serialized
// execution context and returns the resulting snapshot.
func (s *Session) Poll(ctx context.Context) (Snapshot, error) {
	_, err := s.submit(ctx, "poll", false, func(ctx context.Context) (string, error) {
		return "", s.pollOnce(ctx)
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap, _ := s.cache.Current()
	return snap, nil
}

// Status returns the lamp status, from cache when it is fresh. With
// force set, or when the cache is stale or empty, it polls first.
func (s *Session) Status(ctx context.Context, force bool) (Snapshot, error) {
	if !force {
		if snap, fresh := s.cache.Current(); fresh {
			return snap, nil
		}
	}
	return s.Poll(ctx)
}

// SetChannel sets a single PWM channel duty percentage.
func (s *Session) SetChannel(ctx context.Context, channel int, value float64) (CommandResult, error) {
	req, err := EncodeSetChannel(channel, value)
	if err != nil {
		return CommandResult{}, err
	}
	return s.submit(ctx, "set_channel", true, s.sendRequest(req))
}

// SetAllChannels sets all four channels, the color code and the global
// intensity in one device request.
func (s *Session) SetAllChannels(ctx context.Context, values [4]float64, colorCode int, intensity float64) (CommandResult, error) {
	req, err := EncodeSetAllChannels(values, colorCode, intensity)
	if err != nil {
		return CommandResult{}, err
	}
	return s.submit(ctx, "set_all_channels", true, s.sendRequest(req))
}

// SetPWMFrequency sets the PWM frequency in Hz.
func (s *Session) SetPWMFrequency(ctx context.Context, hz int) (CommandResult, error) {
	req, err := EncodeSetPWMFrequency(hz)
	if err != nil {
		return CommandResult{}, err
	}
	return s.submit(ctx, "set_pwm_frequency", true, s.sendRequest(req))
}

// InitPWM re-initializes the PWM subsystem on the device.
func (s *Session) InitPWM(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "init_pwm", true, s.sendRequest(EncodeInitPWM()))
}

// SyncRTC triggers an RTC synchronization. A zero timestamp means
// "now"; the timestamp is echoed in the result.
func (s *Session) SyncRTC(ctx context.Context, ts time.Time) (CommandResult, error) {
	if ts.IsZero() {
		ts = time.Now()
	}
	result, err := s.submit(ctx, "sync_rtc", true, s.sendRequest(EncodeSyncRTC()))
	if err != nil {
		return CommandResult{}, err
	}
	result.Timestamp = ts
	return result, nil
}

// SetTimezone sets the device timezone.
func (s *Session) SetTimezone(ctx context.Context, tz string) (CommandResult, error) {
	req, err := EncodeSetTimezone(tz)
	if err != nil {
		return CommandResult{}, err
	}
	return s.submit(ctx, "set_timezone", true, s.sendRequest(req))
}

// SetNightMode toggles night mode.
func (s *Session) SetNightMode(ctx context.Context, enabled bool) (CommandResult, error) {
	return s.submit(ctx, "set_night_mode", true, s.sendRequest(EncodeSetNightMode(enabled)))
}

// ManualMode1h switches to manual mode with the device-side one-hour
// revert timer.
func (s *Session) ManualMode1h(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "manual_mode_1h", true, s.sendRequest(EncodeManualMode1h()))
}

// ManualModeDefault switches to manual mode persistently.
func (s *Session) ManualModeDefault(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "manual_mode_default", true, s.sendRequest(EncodeManualModeDefault()))
}

// SetMode switches the operating mode. Switching to manual applies the
// currently selected preset, matching how the lamp's own controller
// behaves.
func (s *Session) SetMode(ctx context.Context, mode string) (CommandResult, error) {
	if mode == ModeManual {
		return s.ApplyPreset(ctx, "", -1)
	}
	req, err := EncodeSetMode(mode)
	if err != nil {
		return CommandResult{}, err
	}
	return s.submit(ctx, "set_mode", true, s.sendRequest(req))
}

// ApplyPreset switches the lamp to manual mode and sends the preset's
// control string. An empty preset reuses the last selection; a
// negative power reuses the stored power level.
func (s *Session) ApplyPreset(ctx context.Context, preset string, power int) (CommandResult, error) {
	s.prefMu.RLock()
	if preset == "" {
		preset = s.selectedPreset
	}
	if power < 0 {
		power = s.power
	}
	s.prefMu.RUnlock()

	ctrl, err := PresetCtrl(preset, power)
	if err != nil {
		return CommandResult{}, err
	}
	modeReq, err := EncodeSetMode(ModeManual)
	if err != nil {
		return CommandResult{}, err
	}
	presetReq, err := EncodeRawCommand("", ctrl)
	if err != nil {
		return CommandResult{}, err
	}

	result, err := s.submit(ctx, "apply_preset", true, func(ctx context.Context) (string, error) {
		if _, err := s.transport.Send(ctx, modeReq); err != nil {
			return "", err
		}
		return s.transport.Send(ctx, presetReq)
	})
	if err != nil {
		return CommandResult{}, err
	}

	s.prefMu.Lock()
	s.selectedPreset = preset
	s.power = power
	s.prefMu.Unlock()
	return result, nil
}

// SetPower stores a new output power and re-applies the selected
// preset at that level.
func (s *Session) SetPower(ctx context.Context, power int) (CommandResult, error) {
	if power < 0 || power > 100 {
		return CommandResult{}, fmt.Errorf("%w: set_power: power %d outside 0-100", ErrValidation, power)
	}
	return s.ApplyPreset(ctx, "", power)
}

// ClearSchedule wipes the schedule stored on the device.
func (s *Session) ClearSchedule(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "clear_schedule", true, s.sendRequest(EncodeClearSchedule()))
}

// WriteSchedule transfers a schedule to the device using the pipeline
// its variant demands: clear, announce the transfer, send the encoded
// payload, save. The schedule is validated and encoded before any
// network traffic.
func (s *Session) WriteSchedule(ctx context.Context, sched *Schedule) (CommandResult, error) {
	wire, err := Encode(sched)
	if err != nil {
		return CommandResult{}, fmt.Errorf("write_schedule: %w", err)
	}
	startReq, err := EncodeStartScheduleTransfer(sched.Variant, len(sched.Entries))
	if err != nil {
		return CommandResult{}, fmt.Errorf("write_schedule: %w", err)
	}
	payloadReq, err := EncodeSchedulePayload(sched.Variant, wire)
	if err != nil {
		return CommandResult{}, fmt.Errorf("write_schedule: %w", err)
	}

	return s.submit(ctx, "write_schedule", true, func(ctx context.Context) (string, error) {
		for _, req := range []Request{EncodeClearSchedule(), startReq, payloadReq, EncodeSaveSchedule()} {
			if _, err := s.transport.Send(ctx, req); err != nil {
				return "", err
			}
		}
		return wire, nil
	})
}

// ReadSchedule reads the raw schedule string back from the device and
// decodes it as the given variant.
func (s *Session) ReadSchedule(ctx context.Context, v Variant) (*Schedule, error) {
	result, err := s.submit(ctx, "read_schedule", false, s.sendRequest(EncodeReadScheduleString()))
	if err != nil {
		return nil, err
	}
	sched, err := Decode(result.Payload, v)
	if err != nil {
		return nil, fmt.Errorf("read_schedule: %w", err)
	}
	return sched, nil
}

// AddClone registers a clone lamp's MAC on this master.
func (s *Session) AddClone(ctx context.Context, mac string) (CommandResult, error) {
	req, err := EncodeAddClone(mac)
	if err != nil {
		return CommandResult{}, err
	}
	return s.submit(ctx, "add_clone", true, s.sendRequest(req))
}

// RemoveClone removes a clone lamp's MAC from this master.
func (s *Session) RemoveClone(ctx context.Context, mac string) (CommandResult, error) {
	req, err := EncodeRemoveClone(mac)
	if err != nil {
		return CommandResult{}, err
	}
	return s.submit(ctx, "remove_clone", true, s.sendRequest(req))
}

// SetCloneMode switches this lamp into clone mode.
func (s *Session) SetCloneMode(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "set_clone_mode", true, s.sendRequest(EncodeSetCloneMode()))
}

// ClearMasterClone clears all master/clone linkage on the device.
func (s *Session) ClearMasterClone(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "clear_master_clone", true, s.sendRequest(EncodeClearMasterClone()))
}

// SendRaw passes a raw params or ctrl value through to the device.
// Exactly one of the two must be supplied.
func (s *Session) SendRaw(ctx context.Context, params, ctrl string) (CommandResult, error) {
	req, err := EncodeRawCommand(params, ctrl)
	if err != nil {
		return CommandResult{}, err
	}
	return s.submit(ctx, "send_raw_command", true, s.sendRequest(req))
}

// Diagnostic reads. These hit the device but mutate nothing; the
// session does not schedule a post-command refresh for them.

// ReadPWMFrequency reads the current PWM frequency.
func (s *Session) ReadPWMFrequency(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "read_pwm_frequency", false, s.sendRequest(EncodeReadPWMFrequency()))
}

// ReadDescription reads the device description.
func (s *Session) ReadDescription(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "read_description", false, s.sendRequest(EncodeReadDescription()))
}

// ReadLEDStatus reads the LED status diagnostics.
func (s *Session) ReadLEDStatus(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "read_led_status", false, s.sendRequest(EncodeReadLEDStatus()))
}

// ReadScheduleStatus reads the schedule execution status.
func (s *Session) ReadScheduleStatus(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "read_schedule_status", false, s.sendRequest(EncodeReadScheduleStatus()))
}

// ReadScheduleString reads the raw schedule wire string.
func (s *Session) ReadScheduleString(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "read_schedule_string", false, s.sendRequest(EncodeReadScheduleString()))
}

// ReadInfoG8 reads the extended info diagnostics.
func (s *Session) ReadInfoG8(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "read_info_g8", false, s.sendRequest(EncodeReadInfoG8()))
}

// FirmwareVersion reads the firmware version, falling back to the
// legacy command on older firmwares.
func (s *Session) FirmwareVersion(ctx context.Context) (CommandResult, error) {
	return s.submit(ctx, "read_firmware_version", false, func(ctx context.Context) (string, error) {
		if version, err := s.transport.Send(ctx, EncodeReadFirmwareVersion(false)); err == nil && version != "" {
			return version, nil
		}
		return s.transport.Send(ctx, EncodeReadFirmwareVersion(true))
	})
}
