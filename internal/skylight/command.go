package skylight

import (
	"fmt"
	"strconv"
)

// RequestKind selects which query parameter of the schedule endpoint
// carries a command value.
type RequestKind int

const (
	// KindParams commands go out as ?params=<value>. Mode switches,
	// clone management and schedule transfers use this channel.
	KindParams RequestKind = iota + 1

	// KindCtrl commands go out as ?ctrl=<value>. Direct output control
	// and diagnostics use this channel.
	KindCtrl
)

func (k RequestKind) queryKey() string {
	if k == KindParams {
		return "params"
	}
	return "ctrl"
}

// Request is one encoded firmware command, ready for Transport.
type Request struct {
	Kind  RequestKind
	Value string
}

// Command encoders. Every operation validates its parameters before
// building a request; a validation failure never produces a Request
// and therefore never reaches Transport.

// EncodeSetChannel builds the single-channel PWM command.
//
// Parameters:
//   - channel: PWM channel index, 0-3
//   - value: Duty percentage, 0-100
func EncodeSetChannel(channel int, value float64) (Request, error) {
	if channel < 0 || channel > 3 {
		return Request{}, fmt.Errorf("%w: set_channel: channel %d outside 0-3", ErrValidation, channel)
	}
	if value < 0 || value > 100 {
		return Request{}, fmt.Errorf("%w: set_channel: value %g outside 0-100", ErrValidation, value)
	}
	return Request{Kind: KindCtrl, Value: fmt.Sprintf("7%d%s", channel, formatChannel(value))}, nil
}

// EncodeSetAllChannels builds the atomic all-channel command carrying
// four duty percentages, a color code and a global intensity.
func EncodeSetAllChannels(values [4]float64, colorCode int, intensity float64) (Request, error) {
	for i, v := range values {
		if v < 0 || v > 100 {
			return Request{}, fmt.Errorf("%w: set_all_channels: channel %d value %g outside 0-100",
				ErrValidation, i, v)
		}
	}
	if colorCode < 0 {
		return Request{}, fmt.Errorf("%w: set_all_channels: negative color code %d", ErrValidation, colorCode)
	}
	if intensity < 0 || intensity > 100 {
		return Request{}, fmt.Errorf("%w: set_all_channels: intensity %g outside 0-100", ErrValidation, intensity)
	}
	value := fmt.Sprintf("74%sh%si%sj%sk%dl%sm",
		formatChannel(values[0]), formatChannel(values[1]),
		formatChannel(values[2]), formatChannel(values[3]),
		colorCode, formatChannel(intensity))
	return Request{Kind: KindCtrl, Value: value}, nil
}

// EncodeSetPWMFrequency builds the PWM frequency command.
func EncodeSetPWMFrequency(hz int) (Request, error) {
	if hz <= 0 {
		return Request{}, fmt.Errorf("%w: set_pwm_frequency: frequency %d must be positive", ErrValidation, hz)
	}
	return Request{Kind: KindCtrl, Value: "75" + strconv.Itoa(hz)}, nil
}

// EncodeInitPWM builds the PWM subsystem re-initialization command.
func EncodeInitPWM() Request {
	return Request{Kind: KindCtrl, Value: "78"}
}

// EncodeSyncRTC builds the RTC synchronization trigger. The device
// picks up the time itself; the caller's timestamp is echoed in the
// CommandResult, not sent on the wire.
func EncodeSyncRTC() Request {
	return Request{Kind: KindCtrl, Value: "6"}
}

// EncodeSetTimezone builds the timezone command.
func EncodeSetTimezone(tz string) (Request, error) {
	if tz == "" {
		return Request{}, fmt.Errorf("%w: set_timezone: empty timezone", ErrValidation)
	}
	return Request{Kind: KindCtrl, Value: "b" + tz}, nil
}

// EncodeSetNightMode builds the night-mode toggle.
func EncodeSetNightMode(enabled bool) Request {
	if enabled {
		return Request{Kind: KindCtrl, Value: "gt01"}
	}
	return Request{Kind: KindCtrl, Value: "gt00"}
}

// EncodeManualMode1h builds the manual-mode command with a device-side
// one-hour revert timer. The timer is not tracked locally.
func EncodeManualMode1h() Request {
	return Request{Kind: KindCtrl, Value: "gu1"}
}

// EncodeManualModeDefault builds the manual-mode command that persists
// until explicitly changed.
func EncodeManualModeDefault() Request {
	return Request{Kind: KindCtrl, Value: "gu3"}
}

// EncodeSetMode builds the operating-mode switch. Off and manual both
// disable automatic schedule execution on the device.
func EncodeSetMode(mode string) (Request, error) {
	switch mode {
	case ModeOff, ModeManual:
		return Request{Kind: KindParams, Value: "9"}, nil
	case ModeAuto:
		return Request{Kind: KindParams, Value: "a"}, nil
	case ModeDemo:
		return Request{Kind: KindParams, Value: "c"}, nil
	default:
		return Request{}, fmt.Errorf("%w: set_mode: unsupported mode %q", ErrValidation, mode)
	}
}

// EncodeClearSchedule builds the schedule wipe command.
func EncodeClearSchedule() Request {
	return Request{Kind: KindParams, Value: "4"}
}

// EncodeSaveSchedule builds the command persisting a transferred
// schedule on the device.
func EncodeSaveSchedule() Request {
	return Request{Kind: KindParams, Value: "6"}
}

// EncodeStartScheduleTransfer builds the transfer announcement for a
// variant. Old and safe firmwares want the entry count up front; the
// new firmware uses a bare start token.
func EncodeStartScheduleTransfer(v Variant, count int) (Request, error) {
	if !v.valid() {
		return Request{}, fmt.Errorf("%w: start_schedule: unknown variant %d", ErrValidation, int(v))
	}
	if count < 1 || count > v.MaxEntries() {
		return Request{}, fmt.Errorf("%w: start_schedule: count %d outside 1-%d for %s variant",
			ErrValidation, count, v.MaxEntries(), v)
	}
	switch v {
	case VariantOld:
		return Request{Kind: KindParams, Value: fmt.Sprintf("7_%d", count)}, nil
	case VariantSafe:
		return Request{Kind: KindParams, Value: fmt.Sprintf("p_%d", count)}, nil
	default:
		return Request{Kind: KindParams, Value: "r"}, nil
	}
}

// EncodeSchedulePayload wraps an encoded schedule wire string in the
// variant's payload envelope.
func EncodeSchedulePayload(v Variant, payload string) (Request, error) {
	if payload == "" {
		return Request{}, fmt.Errorf("%w: schedule_payload: empty payload", ErrValidation)
	}
	switch v {
	case VariantOld:
		return Request{Kind: KindParams, Value: "g_" + payload}, nil
	case VariantSafe:
		return Request{Kind: KindParams, Value: "s_" + payload}, nil
	case VariantNew:
		return Request{Kind: KindParams, Value: payload}, nil
	default:
		return Request{}, fmt.Errorf("%w: schedule_payload: unknown variant %d", ErrValidation, int(v))
	}
}

// EncodeAddClone builds the clone registration command for a master.
func EncodeAddClone(mac string) (Request, error) {
	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return Request{}, fmt.Errorf("add_clone: %w", err)
	}
	return Request{Kind: KindParams, Value: "k" + normalized}, nil
}

// EncodeRemoveClone builds the clone removal command.
func EncodeRemoveClone(mac string) (Request, error) {
	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return Request{}, fmt.Errorf("remove_clone: %w", err)
	}
	return Request{Kind: KindParams, Value: "l" + normalized}, nil
}

// EncodeSetCloneMode builds the command switching this lamp into
// clone mode.
func EncodeSetCloneMode() Request {
	return Request{Kind: KindParams, Value: "i"}
}

// EncodeClearMasterClone builds the command clearing all master/clone
// linkage on the device.
func EncodeClearMasterClone() Request {
	return Request{Kind: KindParams, Value: "j"}
}

// EncodeRawCommand builds a passthrough request from exactly one of a
// structured params value or an opaque ctrl value. Supplying both or
// neither is a caller error enforced here, not by the device.
func EncodeRawCommand(params, ctrl string) (Request, error) {
	if (params == "") == (ctrl == "") {
		return Request{}, fmt.Errorf("%w: send_raw_command: provide exactly one of params or ctrl", ErrValidation)
	}
	if params != "" {
		return Request{Kind: KindParams, Value: params}, nil
	}
	return Request{Kind: KindCtrl, Value: ctrl}, nil
}

// Diagnostic read commands. These mutate nothing on the device; the
// session exposes their raw responses and refreshes the cache around
// them as usual.

// EncodeReadPWMFrequency builds the PWM frequency readback.
func EncodeReadPWMFrequency() Request {
	return Request{Kind: KindCtrl, Value: "76"}
}

// EncodeReadDescription builds the device description readback.
func EncodeReadDescription() Request {
	return Request{Kind: KindCtrl, Value: "g0"}
}

// EncodeReadLEDStatus builds the LED status readback.
func EncodeReadLEDStatus() Request {
	return Request{Kind: KindCtrl, Value: "g2"}
}

// EncodeReadScheduleStatus builds the schedule status readback.
func EncodeReadScheduleStatus() Request {
	return Request{Kind: KindCtrl, Value: "g30"}
}

// EncodeReadScheduleString builds the raw schedule string readback.
func EncodeReadScheduleString() Request {
	return Request{Kind: KindCtrl, Value: "g31"}
}

// EncodeReadInfoG8 builds the extended info readback.
func EncodeReadInfoG8() Request {
	return Request{Kind: KindCtrl, Value: "g8"}
}

// EncodeReadFirmwareVersion builds the firmware version read. Newer
// firmwares answer params=n1; older ones only know params=n, which the
// session falls back to when n1 fails.
func EncodeReadFirmwareVersion(legacy bool) Request {
	if legacy {
		return Request{Kind: KindParams, Value: "n"}
	}
	return Request{Kind: KindParams, Value: "n1"}
}
