package skylight

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Variant identifies one of the historically distinct schedule wire
// encodings a firmware generation expects. The set is closed; each
// variant carries its own structural parameters (entry limit, power
// placement, channel support) and the codec dispatches on the tag.
type Variant int

const (
	// VariantOld is the original encoding: a single global power level
	// followed by underscore-separated time/preset records.
	VariantOld Variant = iota + 1

	// VariantSafe is the fixed-width encoding introduced for firmwares
	// with fragile parsers: every record is exactly ten characters.
	VariantSafe

	// VariantNew is the current encoding: tagged records that carry
	// per-entry power and optionally explicit channel values.
	VariantNew
)

// Entry limits are firmware-imposed per variant. Exceeding them is a
// codec error, never a silent truncation.
const (
	maxEntriesOld  = 12
	maxEntriesSafe = 24
	maxEntriesNew  = 48
)

// String returns the variant name as used in configuration and APIs.
func (v Variant) String() string {
	switch v {
	case VariantOld:
		return "old"
	case VariantSafe:
		return "safe"
	case VariantNew:
		return "new"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// MarshalJSON renders the variant by name so JSON payloads read
// "old"/"safe"/"new" instead of bare tags.
func (v Variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts a variant name.
func (v *Variant) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: schedule variant must be a string", ErrValidation)
	}
	parsed, err := ParseVariant(name)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseVariant converts a variant name into its tag.
//
// Returns ErrValidation for anything other than "old", "safe" or "new".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "old":
		return VariantOld, nil
	case "safe":
		return VariantSafe, nil
	case "new":
		return VariantNew, nil
	default:
		return 0, fmt.Errorf("%w: unknown schedule variant %q", ErrValidation, s)
	}
}

// MaxEntries returns the firmware-imposed entry limit for the variant.
func (v Variant) MaxEntries() int {
	switch v {
	case VariantOld:
		return maxEntriesOld
	case VariantSafe:
		return maxEntriesSafe
	case VariantNew:
		return maxEntriesNew
	default:
		return 0
	}
}

// valid reports whether the tag is a member of the closed set.
func (v Variant) valid() bool {
	return v == VariantOld || v == VariantSafe || v == VariantNew
}

// ChannelSet holds explicit per-channel PWM targets for one schedule
// entry. Only VariantNew can carry channel entries on the wire.
type ChannelSet struct {
	Values    [4]float64 `json:"values"`
	ColorCode int        `json:"color_code"`
}

// Entry is one scheduled transition: a time-of-day trigger plus either
// a preset code or explicit channel values, and an output power level.
//
// Power semantics depend on the variant: VariantOld stores power once
// per schedule (Entry.Power must be zero there), VariantSafe and
// VariantNew store it per entry.
type Entry struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`

	// Preset is a two-character code, letter A-F then number 1-10.
	// Empty when the entry carries explicit channel values instead.
	Preset string `json:"preset,omitempty"`

	// Channels holds explicit PWM targets. Mutually exclusive with
	// Preset; only valid for VariantNew.
	Channels *ChannelSet `json:"channels,omitempty"`

	// Power is the per-entry output scaling in percent (safe/new only).
	Power int `json:"power,omitempty"`
}

// Schedule is an ordered sequence of entries built for one specific
// wire variant. Entry order is meaningful: the firmware evaluates
// entries in stored sequence, so the codec preserves order on decode
// and re-encode. Converting between variants is not supported.
type Schedule struct {
	Variant Variant `json:"variant"`

	// Power is the schedule-global output scaling in percent.
	// Only used by VariantOld; must be zero otherwise.
	Power int `json:"power,omitempty"`

	Entries []Entry `json:"entries"`
}

// Validate checks the schedule against its variant's structural rules.
//
// It verifies entry count, time ranges, power ranges, preset codes,
// channel values, and the per-variant power placement. A schedule that
// passes Validate is guaranteed to encode without error.
func (s *Schedule) Validate() error {
	if !s.Variant.valid() {
		return fmt.Errorf("%w: schedule has no valid variant tag", ErrValidation)
	}
	if len(s.Entries) == 0 {
		return fmt.Errorf("%w: schedule has no entries", ErrValidation)
	}
	if len(s.Entries) > s.Variant.MaxEntries() {
		return fmt.Errorf("%w: %d entries exceeds %s variant limit of %d",
			ErrCodec, len(s.Entries), s.Variant, s.Variant.MaxEntries())
	}

	if s.Variant == VariantOld {
		if s.Power < 0 || s.Power > 100 {
			return fmt.Errorf("%w: global power %d outside 0-100", ErrValidation, s.Power)
		}
	} else if s.Power != 0 {
		return fmt.Errorf("%w: global power is only valid for the old variant", ErrValidation)
	}

	for i := range s.Entries {
		if err := s.Entries[i].validate(s.Variant); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

func (e *Entry) validate(v Variant) error {
	if e.Hour < 0 || e.Hour > 23 {
		return fmt.Errorf("%w: hour %d outside 0-23", ErrValidation, e.Hour)
	}
	if e.Minute < 0 || e.Minute > 59 {
		return fmt.Errorf("%w: minute %d outside 0-59", ErrValidation, e.Minute)
	}

	hasPreset := e.Preset != ""
	hasChannels := e.Channels != nil
	switch {
	case hasPreset && hasChannels:
		return fmt.Errorf("%w: entry has both preset and channel values", ErrValidation)
	case !hasPreset && !hasChannels:
		return fmt.Errorf("%w: entry has neither preset nor channel values", ErrValidation)
	case hasChannels && v != VariantNew:
		return fmt.Errorf("%w: channel entries require the new variant", ErrValidation)
	}

	if hasPreset {
		if _, _, err := ParsePreset(e.Preset); err != nil {
			return err
		}
	}
	if hasChannels {
		for i, val := range e.Channels.Values {
			if val < 0 || val > 100 {
				return fmt.Errorf("%w: channel %d value %g outside 0-100", ErrValidation, i, val)
			}
		}
		if e.Channels.ColorCode < 0 {
			return fmt.Errorf("%w: negative color code %d", ErrValidation, e.Channels.ColorCode)
		}
	}

	switch v {
	case VariantOld:
		if e.Power != 0 {
			return fmt.Errorf("%w: per-entry power is not valid for the old variant", ErrValidation)
		}
	default:
		if e.Power < 0 || e.Power > 100 {
			return fmt.Errorf("%w: power %d outside 0-100", ErrValidation, e.Power)
		}
	}
	return nil
}
