package skylight

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Preset codes are two-character lighting program identifiers: a
// spectrum letter A-F followed by an intensity step 1-10. The firmware
// has no preset storage of its own; applying a preset means sending a
// full all-channel control string built from the spectrum table below.

// DefaultPower is the output power used when a caller applies a preset
// without specifying one.
const DefaultPower = 100

// powerSuffixPattern matches the trailing "l{power}m" token of an
// all-channel control string so a new power level can be substituted.
var powerSuffixPattern = regexp.MustCompile(`l-?\d+(?:\.\d+)?m$`)

// presetSpectrum maps each spectrum letter to its four base channel
// percentages and the color code reported back by the lamp.
var presetSpectrum = map[byte]struct {
	channels [4]float64
	color    int
}{
	'A': {channels: [4]float64{100, 100, 100, 100}, color: 1}, // full spectrum
	'B': {channels: [4]float64{100, 80, 60, 40}, color: 2},    // warm
	'C': {channels: [4]float64{40, 60, 80, 100}, color: 3},    // cool
	'D': {channels: [4]float64{100, 40, 100, 40}, color: 4},   // plant growth
	'E': {channels: [4]float64{20, 20, 100, 100}, color: 5},   // deep blue
	'F': {channels: [4]float64{100, 20, 20, 0}, color: 6},     // sunset
}

// ParsePreset validates a preset code and splits it into components.
//
// Parameters:
//   - code: Two-character code, letter A-F then number 1-10
//
// Returns:
//   - byte: The spectrum letter
//   - int: The intensity step (1-10)
//   - error: ErrValidation if the code is outside {A..F} x {1..10}
func ParsePreset(code string) (byte, int, error) {
	if len(code) < 2 || len(code) > 3 {
		return 0, 0, fmt.Errorf("%w: preset code %q must be letter A-F plus number 1-10", ErrValidation, code)
	}
	letter := code[0]
	if letter < 'A' || letter > 'F' {
		return 0, 0, fmt.Errorf("%w: preset letter %q outside A-F", ErrValidation, string(letter))
	}
	number, err := strconv.Atoi(code[1:])
	if err != nil || number < 1 || number > 10 {
		return 0, 0, fmt.Errorf("%w: preset number %q outside 1-10", ErrValidation, code[1:])
	}
	return letter, number, nil
}

// PresetCtrl builds the all-channel control string for a preset at the
// given output power.
//
// The spectrum letter selects the base channel mix, the intensity step
// scales it (step 10 = full mix), and the power replaces the trailing
// "l...m" token the same way stored control strings are re-powered.
func PresetCtrl(code string, power int) (string, error) {
	letter, number, err := ParsePreset(code)
	if err != nil {
		return "", err
	}
	if power < 0 || power > 100 {
		return "", fmt.Errorf("%w: power %d outside 0-100", ErrValidation, power)
	}

	spectrum := presetSpectrum[letter]
	scale := float64(number) / 10.0

	// Scaled values are rounded to one decimal so the wire string stays
	// free of float artifacts.
	scaled := func(v float64) string {
		return formatChannel(math.Round(v*scale*10) / 10)
	}

	ctrl := fmt.Sprintf("74%sh%si%sj%sk%dl%dm",
		scaled(spectrum.channels[0]),
		scaled(spectrum.channels[1]),
		scaled(spectrum.channels[2]),
		scaled(spectrum.channels[3]),
		spectrum.color,
		power)
	return ctrl, nil
}

// SubstitutePower replaces the trailing power token of an all-channel
// control string with a new power level.
//
// Control strings that do not end in a power token are returned
// unchanged; callers that care can compare input and output.
func SubstitutePower(ctrl string, power int) string {
	return powerSuffixPattern.ReplaceAllString(ctrl, fmt.Sprintf("l%dm", power))
}
