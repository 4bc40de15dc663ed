package skylight

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func sampleOld() *Schedule {
	return &Schedule{
		Variant: VariantOld,
		Power:   80,
		Entries: []Entry{
			{Hour: 8, Minute: 0, Preset: "A1"},
			{Hour: 12, Minute: 30, Preset: "D10"},
			{Hour: 18, Minute: 0, Preset: "C5"},
		},
	}
}

func sampleSafe() *Schedule {
	return &Schedule{
		Variant: VariantSafe,
		Entries: []Entry{
			{Hour: 8, Minute: 0, Preset: "A1", Power: 80},
			{Hour: 23, Minute: 59, Preset: "F10", Power: 5},
		},
	}
}

func sampleNew() *Schedule {
	return &Schedule{
		Variant: VariantNew,
		Entries: []Entry{
			{Hour: 8, Minute: 0, Preset: "A1", Power: 80},
			{
				Hour:   13,
				Minute: 15,
				Channels: &ChannelSet{
					Values:    [4]float64{12.5, 0, 100, 33},
					ColorCode: 4,
				},
				Power: 60,
			},
			{Hour: 18, Minute: 0, Preset: "C5", Power: 40},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		schedule *Schedule
	}{
		{"old variant", sampleOld()},
		{"safe variant", sampleSafe()},
		{"new variant", sampleNew()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := Encode(tt.schedule)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			decoded, err := Decode(wire, tt.schedule.Variant)
			if err != nil {
				t.Fatalf("Decode(%q) error: %v", wire, err)
			}
			if !reflect.DeepEqual(tt.schedule, decoded) {
				t.Errorf("round trip mismatch:\n in: %+v\nout: %+v\nwire: %q", tt.schedule, decoded, wire)
			}
		})
	}
}

func TestRoundTrip_ScenarioOrderPreserved(t *testing.T) {
	schedule := &Schedule{
		Variant: VariantNew,
		Entries: []Entry{
			{Hour: 8, Minute: 0, Preset: "A1", Power: 80},
			{Hour: 18, Minute: 0, Preset: "C5", Power: 40},
		},
	}

	wire, err := Encode(schedule)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	decoded, err := Decode(wire, VariantNew)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if !reflect.DeepEqual(schedule, decoded) {
		t.Fatalf("decoded schedule differs:\n in: %+v\nout: %+v", schedule, decoded)
	}
	if decoded.Entries[0].Preset != "A1" || decoded.Entries[1].Preset != "C5" {
		t.Errorf("entry order not preserved: %+v", decoded.Entries)
	}
}

func TestDecode_CrossVariantFails(t *testing.T) {
	samples := map[Variant]*Schedule{
		VariantOld:  sampleOld(),
		VariantSafe: sampleSafe(),
		VariantNew:  sampleNew(),
	}

	for encodeAs, schedule := range samples {
		wire, err := Encode(schedule)
		if err != nil {
			t.Fatalf("Encode(%s) error: %v", encodeAs, err)
		}
		for _, decodeAs := range []Variant{VariantOld, VariantSafe, VariantNew} {
			if decodeAs == encodeAs {
				continue
			}
			t.Run(encodeAs.String()+"_as_"+decodeAs.String(), func(t *testing.T) {
				if _, err := Decode(wire, decodeAs); !errors.Is(err, ErrCodec) {
					t.Errorf("Decode(%q, %s) = %v, want ErrCodec", wire, decodeAs, err)
				}
			})
		}
	}
}

func TestDecode_TrailingPadding(t *testing.T) {
	wire, err := Encode(sampleNew())
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	padded := wire + "\x00\x00 \r\n"
	decoded, err := Decode(padded, VariantNew)
	if err != nil {
		t.Fatalf("Decode() with padding error: %v", err)
	}
	if !reflect.DeepEqual(sampleNew(), decoded) {
		t.Errorf("padding changed decode result: %+v", decoded)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		wire    string
		variant Variant
	}{
		{"empty string", "", VariantNew},
		{"old without header", "0800A1_1800C5", VariantOld},
		{"old bad power", "Pxx_0800A1", VariantOld},
		{"old no entries", "P80", VariantOld},
		{"old bad preset", "P80_0800Z1", VariantOld},
		{"old non-numeric time", "P80_08a0A1", VariantOld},
		{"safe ragged length", "0800A0108", VariantSafe},
		{"safe bad letter", "0800Z01080", VariantSafe},
		{"safe bad power", "0800A01xbc", VariantSafe},
		{"safe out-of-range time", "9900A01080", VariantSafe},
		{"new wrong leading tag", "x0800pA1l80m", VariantNew},
		{"new truncated record", "t08", VariantNew},
		{"new missing power", "t0800pA1", VariantNew},
		{"new bad preset", "t0800pZ9l80m", VariantNew},
		{"new unterminated power", "t0800pA1l80", VariantNew},
		{"new bad channel value", "t080074xh2i3j4k1l80m", VariantNew},
		{"new missing channel separator", "t0800741i2j3k1l80m", VariantNew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.wire, tt.variant); !errors.Is(err, ErrCodec) {
				t.Errorf("Decode(%q, %s) = %v, want ErrCodec", tt.wire, tt.variant, err)
			}
		})
	}
}

func TestEncode_EntryOverflow(t *testing.T) {
	schedule := &Schedule{Variant: VariantOld, Power: 50}
	for i := 0; i <= maxEntriesOld; i++ {
		schedule.Entries = append(schedule.Entries, Entry{Hour: i % 24, Preset: "A1"})
	}

	if _, err := Encode(schedule); !errors.Is(err, ErrCodec) {
		t.Errorf("Encode() with %d entries = %v, want ErrCodec", len(schedule.Entries), err)
	}
}

func TestEncode_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		schedule *Schedule
	}{
		{
			name:     "no entries",
			schedule: &Schedule{Variant: VariantNew},
		},
		{
			name: "untagged schedule",
			schedule: &Schedule{
				Entries: []Entry{{Hour: 8, Preset: "A1"}},
			},
		},
		{
			name: "hour out of range",
			schedule: &Schedule{
				Variant: VariantNew,
				Entries: []Entry{{Hour: 24, Preset: "A1", Power: 50}},
			},
		},
		{
			name: "bad preset code",
			schedule: &Schedule{
				Variant: VariantSafe,
				Entries: []Entry{{Hour: 8, Preset: "G1", Power: 50}},
			},
		},
		{
			name: "preset and channels together",
			schedule: &Schedule{
				Variant: VariantNew,
				Entries: []Entry{{
					Hour:     8,
					Preset:   "A1",
					Channels: &ChannelSet{},
					Power:    50,
				}},
			},
		},
		{
			name: "channels on old variant",
			schedule: &Schedule{
				Variant: VariantOld,
				Power:   50,
				Entries: []Entry{{Hour: 8, Channels: &ChannelSet{}}},
			},
		},
		{
			name: "per-entry power on old variant",
			schedule: &Schedule{
				Variant: VariantOld,
				Power:   50,
				Entries: []Entry{{Hour: 8, Preset: "A1", Power: 20}},
			},
		},
		{
			name: "global power on new variant",
			schedule: &Schedule{
				Variant: VariantNew,
				Power:   50,
				Entries: []Entry{{Hour: 8, Preset: "A1", Power: 20}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.schedule); !errors.Is(err, ErrValidation) {
				t.Errorf("Encode() = %v, want ErrValidation", err)
			}
		})
	}
}

func TestEncode_WireShapes(t *testing.T) {
	oldWire, err := Encode(sampleOld())
	if err != nil {
		t.Fatalf("Encode(old) error: %v", err)
	}
	if oldWire != "P80_0800A1_1230D10_1800C5" {
		t.Errorf("old wire = %q", oldWire)
	}

	safeWire, err := Encode(sampleSafe())
	if err != nil {
		t.Fatalf("Encode(safe) error: %v", err)
	}
	if safeWire != "0800A010802359F10005" {
		t.Errorf("safe wire = %q", safeWire)
	}
	if len(safeWire)%safeRecordWidth != 0 {
		t.Errorf("safe wire length %d not a record multiple", len(safeWire))
	}

	newWire, err := Encode(sampleNew())
	if err != nil {
		t.Fatalf("Encode(new) error: %v", err)
	}
	want := "t0800pA1l80mt131574" + "12.5h0i100j33k4" + "l60mt1800pC5l40m"
	if newWire != want {
		t.Errorf("new wire = %q, want %q", newWire, want)
	}
	if strings.Count(newWire, "t") != 3 {
		t.Errorf("new wire should carry three records: %q", newWire)
	}
}

func TestParseVariant(t *testing.T) {
	for _, tt := range []struct {
		input string
		want  Variant
	}{
		{"old", VariantOld},
		{"SAFE", VariantSafe},
		{" new ", VariantNew},
	} {
		got, err := ParseVariant(tt.input)
		if err != nil || got != tt.want {
			t.Errorf("ParseVariant(%q) = %v, %v", tt.input, got, err)
		}
	}

	if _, err := ParseVariant("ancient"); !errors.Is(err, ErrValidation) {
		t.Errorf("ParseVariant(ancient) = %v, want ErrValidation", err)
	}
}
