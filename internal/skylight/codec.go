package skylight

import (
	"fmt"
	"strconv"
	"strings"
)

// Schedule wire grammar, one shape per variant. The strings are not
// self-describing: the caller always states which variant it expects,
// and decoding with the wrong variant fails instead of misparsing.
//
// Old variant ("P" header, underscore separated, presets only):
//
//	P{power}_{HHMM}{preset}_{HHMM}{preset}...
//	P80_0800A1_1800C5
//
// Safe variant (fixed-width ten-character records, no separators):
//
//	{HHMM}{letter}{NN}{PPP} repeated
//	0800A010801800C05040
//
// New variant (tagged records with per-entry power and optional
// explicit channel values):
//
//	t{HHMM}p{preset}l{power}m
//	t{HHMM}74{c0}h{c1}i{c2}j{c3}k{color}l{power}m
//	t0800pA1l80mt1800pC5l40m

// safeRecordWidth is the fixed record size of the safe variant:
// four time digits, one preset letter, two preset digits, three
// power digits.
const safeRecordWidth = 10

// Encode converts a schedule into the wire string its variant tag
// demands. The schedule is validated first; encoding a schedule that
// passes Validate never fails.
//
// Returns:
//   - string: The wire payload for the schedule transfer
//   - error: ErrValidation or ErrCodec describing the offending entry
func Encode(s *Schedule) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	switch s.Variant {
	case VariantOld:
		return encodeOld(s), nil
	case VariantSafe:
		return encodeSafe(s), nil
	default:
		return encodeNew(s), nil
	}
}

// Decode parses a wire string as the given variant.
//
// Trailing padding (NUL bytes, whitespace) the firmware may emit is
// stripped before parsing. Structurally malformed input is rejected
// with ErrCodec rather than guessed at, and a wire string produced for
// a different variant always fails to decode.
func Decode(wire string, v Variant) (*Schedule, error) {
	if !v.valid() {
		return nil, fmt.Errorf("%w: unknown schedule variant %d", ErrCodec, int(v))
	}

	wire = strings.TrimRight(wire, "\x00 \t\r\n")
	if wire == "" {
		return nil, fmt.Errorf("%w: empty %s schedule string", ErrCodec, v)
	}

	var (
		s   *Schedule
		err error
	)
	switch v {
	case VariantOld:
		s, err = decodeOld(wire)
	case VariantSafe:
		s, err = decodeSafe(wire)
	default:
		s, err = decodeNew(wire)
	}
	if err != nil {
		return nil, err
	}
	if len(s.Entries) > v.MaxEntries() {
		return nil, fmt.Errorf("%w: %d entries exceeds %s variant limit of %d",
			ErrCodec, len(s.Entries), v, v.MaxEntries())
	}
	return s, nil
}

func encodeOld(s *Schedule) string {
	var b strings.Builder
	fmt.Fprintf(&b, "P%d", s.Power)
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "_%02d%02d%s", e.Hour, e.Minute, e.Preset)
	}
	return b.String()
}

func decodeOld(wire string) (*Schedule, error) {
	if wire[0] != 'P' {
		return nil, fmt.Errorf("%w: old schedule must start with power header, got %q", ErrCodec, wire[0])
	}

	tokens := strings.Split(wire, "_")
	power, err := strconv.Atoi(tokens[0][1:])
	if err != nil || power < 0 || power > 100 {
		return nil, fmt.Errorf("%w: bad power header %q", ErrCodec, tokens[0])
	}
	if len(tokens) < 2 {
		return nil, fmt.Errorf("%w: old schedule has no entries", ErrCodec)
	}

	s := &Schedule{Variant: VariantOld, Power: power}
	for i, tok := range tokens[1:] {
		if len(tok) < 6 {
			return nil, fmt.Errorf("%w: old schedule record %d too short: %q", ErrCodec, i, tok)
		}
		hour, minute, err := parseTimeDigits(tok[:4])
		if err != nil {
			return nil, fmt.Errorf("%w: old schedule record %d: %w", ErrCodec, i, err)
		}
		preset := tok[4:]
		if _, _, err := ParsePreset(preset); err != nil {
			return nil, fmt.Errorf("%w: old schedule record %d: bad preset %q", ErrCodec, i, preset)
		}
		s.Entries = append(s.Entries, Entry{Hour: hour, Minute: minute, Preset: preset})
	}
	return s, nil
}

func encodeSafe(s *Schedule) string {
	var b strings.Builder
	for _, e := range s.Entries {
		letter, number, _ := ParsePreset(e.Preset)
		fmt.Fprintf(&b, "%02d%02d%c%02d%03d", e.Hour, e.Minute, letter, number, e.Power)
	}
	return b.String()
}

func decodeSafe(wire string) (*Schedule, error) {
	if len(wire)%safeRecordWidth != 0 {
		return nil, fmt.Errorf("%w: safe schedule length %d is not a multiple of %d",
			ErrCodec, len(wire), safeRecordWidth)
	}

	s := &Schedule{Variant: VariantSafe}
	for i := 0; i < len(wire); i += safeRecordWidth {
		rec := wire[i : i+safeRecordWidth]
		idx := i / safeRecordWidth

		hour, minute, err := parseTimeDigits(rec[:4])
		if err != nil {
			return nil, fmt.Errorf("%w: safe schedule record %d: %w", ErrCodec, idx, err)
		}
		number, err := strconv.Atoi(rec[5:7])
		if err != nil {
			return nil, fmt.Errorf("%w: safe schedule record %d: non-numeric preset number %q",
				ErrCodec, idx, rec[5:7])
		}
		preset := fmt.Sprintf("%c%d", rec[4], number)
		if _, _, err := ParsePreset(preset); err != nil {
			return nil, fmt.Errorf("%w: safe schedule record %d: bad preset %q", ErrCodec, idx, preset)
		}
		power, err := strconv.Atoi(rec[7:])
		if err != nil || power < 0 || power > 100 {
			return nil, fmt.Errorf("%w: safe schedule record %d: bad power %q", ErrCodec, idx, rec[7:])
		}

		s.Entries = append(s.Entries, Entry{Hour: hour, Minute: minute, Preset: preset, Power: power})
	}
	return s, nil
}

func encodeNew(s *Schedule) string {
	var b strings.Builder
	for _, e := range s.Entries {
		fmt.Fprintf(&b, "t%02d%02d", e.Hour, e.Minute)
		if e.Preset != "" {
			b.WriteByte('p')
			b.WriteString(e.Preset)
		} else {
			fmt.Fprintf(&b, "74%sh%si%sj%sk%d",
				formatChannel(e.Channels.Values[0]),
				formatChannel(e.Channels.Values[1]),
				formatChannel(e.Channels.Values[2]),
				formatChannel(e.Channels.Values[3]),
				e.Channels.ColorCode)
		}
		fmt.Fprintf(&b, "l%dm", e.Power)
	}
	return b.String()
}

func decodeNew(wire string) (*Schedule, error) {
	s := &Schedule{Variant: VariantNew}
	rest := wire
	for idx := 0; rest != ""; idx++ {
		if rest[0] != 't' {
			return nil, fmt.Errorf("%w: new schedule record %d must start with 't', got %q",
				ErrCodec, idx, rest[0])
		}
		if len(rest) < 5 {
			return nil, fmt.Errorf("%w: new schedule record %d truncated", ErrCodec, idx)
		}
		hour, minute, err := parseTimeDigits(rest[1:5])
		if err != nil {
			return nil, fmt.Errorf("%w: new schedule record %d: %w", ErrCodec, idx, err)
		}
		rest = rest[5:]

		entry := Entry{Hour: hour, Minute: minute}
		switch {
		case strings.HasPrefix(rest, "p"):
			end := strings.IndexByte(rest, 'l')
			if end < 0 {
				return nil, fmt.Errorf("%w: new schedule record %d missing power suffix", ErrCodec, idx)
			}
			entry.Preset = rest[1:end]
			if _, _, err := ParsePreset(entry.Preset); err != nil {
				return nil, fmt.Errorf("%w: new schedule record %d: bad preset %q",
					ErrCodec, idx, entry.Preset)
			}
			rest = rest[end:]
		case strings.HasPrefix(rest, "74"):
			cs, remainder, err := parseChannelBody(rest[2:])
			if err != nil {
				return nil, fmt.Errorf("%w: new schedule record %d: %w", ErrCodec, idx, err)
			}
			entry.Channels = cs
			rest = remainder
		default:
			return nil, fmt.Errorf("%w: new schedule record %d has unknown body tag", ErrCodec, idx)
		}

		power, remainder, err := parsePowerSuffix(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: new schedule record %d: %w", ErrCodec, idx, err)
		}
		entry.Power = power
		rest = remainder

		s.Entries = append(s.Entries, entry)
	}
	if len(s.Entries) == 0 {
		return nil, fmt.Errorf("%w: new schedule has no records", ErrCodec)
	}
	return s, nil
}

// parseChannelBody parses "{c0}h{c1}i{c2}j{c3}k{color}" and returns
// the remainder starting at the power suffix.
func parseChannelBody(body string) (*ChannelSet, string, error) {
	cs := &ChannelSet{}
	rest := body
	for i, sep := range []byte{'h', 'i', 'j', 'k'} {
		end := strings.IndexByte(rest, sep)
		if end < 0 {
			return nil, "", fmt.Errorf("channel body missing %q separator", sep)
		}
		val, err := strconv.ParseFloat(rest[:end], 64)
		if err != nil || val < 0 || val > 100 {
			return nil, "", fmt.Errorf("bad channel %d value %q", i, rest[:end])
		}
		cs.Values[i] = val
		rest = rest[end+1:]
	}

	end := strings.IndexByte(rest, 'l')
	if end < 0 {
		return nil, "", fmt.Errorf("channel body missing color code")
	}
	color, err := strconv.Atoi(rest[:end])
	if err != nil || color < 0 {
		return nil, "", fmt.Errorf("bad color code %q", rest[:end])
	}
	cs.ColorCode = color
	return cs, rest[end:], nil
}

// parsePowerSuffix parses "l{power}m" and returns the remainder after it.
func parsePowerSuffix(rest string) (int, string, error) {
	if rest == "" || rest[0] != 'l' {
		return 0, "", fmt.Errorf("missing power suffix")
	}
	end := strings.IndexByte(rest, 'm')
	if end < 0 {
		return 0, "", fmt.Errorf("unterminated power suffix")
	}
	power, err := strconv.Atoi(rest[1:end])
	if err != nil || power < 0 || power > 100 {
		return 0, "", fmt.Errorf("bad power %q", rest[1:end])
	}
	return power, rest[end+1:], nil
}

// parseTimeDigits parses a strict four-digit HHMM field.
func parseTimeDigits(field string) (hour, minute int, err error) {
	if len(field) != 4 {
		return 0, 0, fmt.Errorf("time field %q is not four digits", field)
	}
	for i := 0; i < 4; i++ {
		if field[i] < '0' || field[i] > '9' {
			return 0, 0, fmt.Errorf("time field %q is not numeric", field)
		}
	}
	hour = int(field[0]-'0')*10 + int(field[1]-'0')
	minute = int(field[2]-'0')*10 + int(field[3]-'0')
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("time %02d:%02d out of range", hour, minute)
	}
	return hour, minute, nil
}

// formatChannel renders a channel percentage the way the firmware
// expects: shortest decimal form, no trailing zeros.
func formatChannel(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
