package skylight

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DeviceStatus is a snapshot of everything read from the lamp's status
// endpoint. Produced atomically from one poll, immutable once
// constructed, and superseded wholesale by the next poll. Fields the
// firmware omitted on a given poll are left at their zero values;
// ScheduleActiveIdx uses -1 for "no active entry".
type DeviceStatus struct {
	// Identity block (status line 0).
	Name       string `json:"name"`
	Model      string `json:"model"`
	MAC        string `json:"mac"`
	IsMaster   bool   `json:"is_master"`
	MasterMAC  string `json:"master_mac,omitempty"`
	CloneCount int    `json:"clone_count"`

	// Clock block (status line 1).
	SNTPEnabled bool   `json:"sntp_enabled"`
	Date        string `json:"date"`
	Time        string `json:"time"`

	// Output block (status line 2). Channel values are percentages.
	PWMFreq         int        `json:"pwm_freq"`
	Channels        [4]float64 `json:"channels"`
	ManualIntensity float64    `json:"manual_intensity"`
	ManualColor     float64    `json:"manual_color"`
	CalibPWM        int        `json:"calib_pwm"`
	NightMode       bool       `json:"night_mode"`

	// Schedule block (status line 3).
	ScheduleEnabled   bool `json:"schedule_enabled"`
	ScheduleItems     int  `json:"schedule_items"`
	ScheduleActiveIdx int  `json:"schedule_active_idx"`

	// Read separately from the schedule endpoint during a poll cycle.
	FirmwareVersion string `json:"firmware_version,omitempty"`
	RawSchedule     string `json:"raw_schedule,omitempty"`
}

// Mode returns the lamp's operating mode as derived from the snapshot.
// The firmware only reports whether automatic schedule execution is
// on; off and manual are indistinguishable from status alone.
func (s *DeviceStatus) Mode() string {
	if s.ScheduleEnabled {
		return ModeAuto
	}
	return ModeManual
}

// Operating modes accepted by SetMode and reported by Mode.
const (
	ModeOff    = "off"
	ModeAuto   = "auto"
	ModeManual = "manual"
	ModeDemo   = "demo"
)

// ParseStatusPage parses the raw status endpoint response into a
// DeviceStatus.
//
// The response is four tab-separated lines:
//
//	line 0: hex(name), hex(model), mac, is_master, master_mac, clone_count
//	line 1: sntp_enabled, date, time
//	line 2: pwm_freq, pwm0..pwm3 (raw 0-255), manual_intensity,
//	        manual_color, calib_pwm, night_mode
//	line 3: schedule_enabled, items_count, active_item_idx
//
// Channel duties arrive as raw 0-255 values and are scaled to percent.
// Missing trailing fields are tolerated (older firmwares emit fewer
// columns); a response without an identity line is rejected.
func ParseStatusPage(raw string) (DeviceStatus, error) {
	status := DeviceStatus{ScheduleActiveIdx: -1}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return status, fmt.Errorf("%w: empty status page", ErrCodec)
	}

	identity := strings.Split(lines[0], "\t")
	if len(identity) < 3 {
		return status, fmt.Errorf("%w: status identity line has %d fields, need at least 3",
			ErrCodec, len(identity))
	}
	status.Name = decodeHexText(identity[0])
	status.Model = decodeHexText(identity[1])
	status.MAC = identity[2]
	if len(identity) > 3 {
		status.IsMaster = identity[3] == "1"
	}
	if len(identity) > 4 {
		status.MasterMAC = identity[4]
	}
	if len(identity) > 5 {
		status.CloneCount = toInt(identity[5])
	}

	if len(lines) > 1 {
		clock := strings.Split(lines[1], "\t")
		status.SNTPEnabled = clock[0] == "1"
		if len(clock) > 1 {
			status.Date = clock[1]
		}
		if len(clock) > 2 {
			status.Time = clock[2]
		}
	}

	if len(lines) > 2 {
		output := strings.Split(lines[2], "\t")
		status.PWMFreq = toInt(output[0])
		for i := 0; i < 4 && i+1 < len(output); i++ {
			status.Channels[i] = rawPWMToPercent(output[i+1])
		}
		if len(output) > 5 {
			status.ManualIntensity = toFloat(output[5])
		}
		if len(output) > 6 {
			status.ManualColor = toFloat(output[6])
		}
		if len(output) > 7 {
			status.CalibPWM = toInt(output[7])
		}
		if len(output) > 8 {
			status.NightMode = output[8] == "1"
		}
	}

	if len(lines) > 3 {
		sched := strings.Split(lines[3], "\t")
		status.ScheduleEnabled = sched[0] == "1"
		if len(sched) > 1 {
			status.ScheduleItems = toInt(sched[1])
		}
		if len(sched) > 2 && sched[2] != "" {
			status.ScheduleActiveIdx = toInt(sched[2])
		}
	}

	return status, nil
}

// NormalizeMAC strips separators from a MAC address and uppercases it.
//
// Returns ErrValidation unless the result is exactly twelve hex digits.
func NormalizeMAC(mac string) (string, error) {
	cleaned := strings.ToUpper(strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.TrimSpace(mac)))
	if len(cleaned) != 12 {
		return "", fmt.Errorf("%w: MAC %q is not 12 hex digits", ErrValidation, mac)
	}
	for i := 0; i < len(cleaned); i++ {
		c := cleaned[i]
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return "", fmt.Errorf("%w: MAC %q contains non-hex character %q", ErrValidation, mac, string(c))
		}
	}
	return cleaned, nil
}

// decodeHexText decodes a hex-encoded text field, stripping NUL
// padding. Fields that are not valid hex are passed through as-is.
func decodeHexText(field string) string {
	if field == "" || len(field)%2 != 0 {
		return field
	}
	decoded, err := hex.DecodeString(field)
	if err != nil {
		return field
	}
	return strings.Trim(string(decoded), "\x00")
}

// rawPWMToPercent converts a raw 0-255 channel duty to a percentage,
// clamped to 0-100 and rounded to one decimal place.
func rawPWMToPercent(field string) float64 {
	raw := toFloat(field)
	pct := raw * 100.0 / 255.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*10) / 10
}

func toInt(field string) int {
	n, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0
	}
	return n
}

func toFloat(field string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0
	}
	return f
}
