package skylight

import (
	"errors"
	"testing"
)

func TestEncodeSetChannel(t *testing.T) {
	tests := []struct {
		name    string
		channel int
		value   float64
		want    string
		wantErr bool
	}{
		{"channel 0 full", 0, 100, "70100", false},
		{"channel 2 fractional", 2, 55.5, "7255.5", false},
		{"channel 3 off", 3, 0, "730", false},
		{"channel too high", 4, 50, "", true},
		{"channel negative", -1, 50, "", true},
		{"value too high", 1, 100.1, "", true},
		{"value negative", 1, -1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := EncodeSetChannel(tt.channel, tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Errorf("EncodeSetChannel() = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeSetChannel() error: %v", err)
			}
			if req.Kind != KindCtrl || req.Value != tt.want {
				t.Errorf("EncodeSetChannel() = %+v, want ctrl %q", req, tt.want)
			}
		})
	}
}

func TestEncodeSetAllChannels(t *testing.T) {
	req, err := EncodeSetAllChannels([4]float64{10, 20.5, 30, 40}, 3, 85)
	if err != nil {
		t.Fatalf("EncodeSetAllChannels() error: %v", err)
	}
	want := "7410h20.5i30j40k3l85m"
	if req.Kind != KindCtrl || req.Value != want {
		t.Errorf("EncodeSetAllChannels() = %+v, want ctrl %q", req, want)
	}

	if _, err := EncodeSetAllChannels([4]float64{10, 20, 101, 40}, 3, 85); !errors.Is(err, ErrValidation) {
		t.Errorf("out-of-range channel: got %v, want ErrValidation", err)
	}
	if _, err := EncodeSetAllChannels([4]float64{10, 20, 30, 40}, -1, 85); !errors.Is(err, ErrValidation) {
		t.Errorf("negative color: got %v, want ErrValidation", err)
	}
	if _, err := EncodeSetAllChannels([4]float64{10, 20, 30, 40}, 3, 101); !errors.Is(err, ErrValidation) {
		t.Errorf("bad intensity: got %v, want ErrValidation", err)
	}
}

func TestEncodeFixedCommands(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		kind RequestKind
		want string
	}{
		{"init pwm", EncodeInitPWM(), KindCtrl, "78"},
		{"sync rtc", EncodeSyncRTC(), KindCtrl, "6"},
		{"night mode on", EncodeSetNightMode(true), KindCtrl, "gt01"},
		{"night mode off", EncodeSetNightMode(false), KindCtrl, "gt00"},
		{"manual 1h", EncodeManualMode1h(), KindCtrl, "gu1"},
		{"manual default", EncodeManualModeDefault(), KindCtrl, "gu3"},
		{"clear schedule", EncodeClearSchedule(), KindParams, "4"},
		{"save schedule", EncodeSaveSchedule(), KindParams, "6"},
		{"clone mode", EncodeSetCloneMode(), KindParams, "i"},
		{"clear master clone", EncodeClearMasterClone(), KindParams, "j"},
		{"read pwm frequency", EncodeReadPWMFrequency(), KindCtrl, "76"},
		{"read description", EncodeReadDescription(), KindCtrl, "g0"},
		{"read led status", EncodeReadLEDStatus(), KindCtrl, "g2"},
		{"read schedule status", EncodeReadScheduleStatus(), KindCtrl, "g30"},
		{"read schedule string", EncodeReadScheduleString(), KindCtrl, "g31"},
		{"read info g8", EncodeReadInfoG8(), KindCtrl, "g8"},
		{"firmware version", EncodeReadFirmwareVersion(false), KindParams, "n1"},
		{"firmware version legacy", EncodeReadFirmwareVersion(true), KindParams, "n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.req.Kind != tt.kind || tt.req.Value != tt.want {
				t.Errorf("got %+v, want kind %v value %q", tt.req, tt.kind, tt.want)
			}
		})
	}
}

func TestEncodeSetMode(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{ModeOff, "9"},
		{ModeManual, "9"},
		{ModeAuto, "a"},
		{ModeDemo, "c"},
	}
	for _, tt := range tests {
		req, err := EncodeSetMode(tt.mode)
		if err != nil {
			t.Fatalf("EncodeSetMode(%q) error: %v", tt.mode, err)
		}
		if req.Kind != KindParams || req.Value != tt.want {
			t.Errorf("EncodeSetMode(%q) = %+v, want params %q", tt.mode, req, tt.want)
		}
	}

	if _, err := EncodeSetMode("party"); !errors.Is(err, ErrValidation) {
		t.Errorf("EncodeSetMode(party) = %v, want ErrValidation", err)
	}
}

func TestEncodeSetPWMFrequency(t *testing.T) {
	req, err := EncodeSetPWMFrequency(1200)
	if err != nil {
		t.Fatalf("EncodeSetPWMFrequency() error: %v", err)
	}
	if req.Value != "751200" {
		t.Errorf("EncodeSetPWMFrequency() = %q, want %q", req.Value, "751200")
	}

	for _, hz := range []int{0, -50} {
		if _, err := EncodeSetPWMFrequency(hz); !errors.Is(err, ErrValidation) {
			t.Errorf("EncodeSetPWMFrequency(%d) = %v, want ErrValidation", hz, err)
		}
	}
}

func TestEncodeScheduleTransfer(t *testing.T) {
	tests := []struct {
		variant Variant
		count   int
		want    string
	}{
		{VariantOld, 3, "7_3"},
		{VariantSafe, 12, "p_12"},
		{VariantNew, 5, "r"},
	}
	for _, tt := range tests {
		req, err := EncodeStartScheduleTransfer(tt.variant, tt.count)
		if err != nil {
			t.Fatalf("EncodeStartScheduleTransfer(%s) error: %v", tt.variant, err)
		}
		if req.Kind != KindParams || req.Value != tt.want {
			t.Errorf("EncodeStartScheduleTransfer(%s, %d) = %+v, want params %q",
				tt.variant, tt.count, req, tt.want)
		}
	}

	if _, err := EncodeStartScheduleTransfer(VariantOld, maxEntriesOld+1); !errors.Is(err, ErrValidation) {
		t.Errorf("overflow count: got %v, want ErrValidation", err)
	}
	if _, err := EncodeStartScheduleTransfer(VariantOld, 0); !errors.Is(err, ErrValidation) {
		t.Errorf("zero count: got %v, want ErrValidation", err)
	}
}

func TestEncodeSchedulePayload(t *testing.T) {
	tests := []struct {
		variant Variant
		payload string
		want    string
	}{
		{VariantOld, "P80_0800A1", "g_P80_0800A1"},
		{VariantSafe, "0800A01080", "s_0800A01080"},
		{VariantNew, "t0800pA1l80m", "t0800pA1l80m"},
	}
	for _, tt := range tests {
		req, err := EncodeSchedulePayload(tt.variant, tt.payload)
		if err != nil {
			t.Fatalf("EncodeSchedulePayload(%s) error: %v", tt.variant, err)
		}
		if req.Kind != KindParams || req.Value != tt.want {
			t.Errorf("EncodeSchedulePayload(%s) = %+v, want params %q", tt.variant, req, tt.want)
		}
	}

	if _, err := EncodeSchedulePayload(VariantNew, ""); !errors.Is(err, ErrValidation) {
		t.Errorf("empty payload: got %v, want ErrValidation", err)
	}
}

func TestEncodeCloneCommands(t *testing.T) {
	req, err := EncodeAddClone("aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("EncodeAddClone() error: %v", err)
	}
	if req.Value != "kAABBCCDDEEFF" {
		t.Errorf("EncodeAddClone() = %q, want %q", req.Value, "kAABBCCDDEEFF")
	}

	req, err = EncodeRemoveClone("AA-BB-CC-DD-EE-FF")
	if err != nil {
		t.Fatalf("EncodeRemoveClone() error: %v", err)
	}
	if req.Value != "lAABBCCDDEEFF" {
		t.Errorf("EncodeRemoveClone() = %q, want %q", req.Value, "lAABBCCDDEEFF")
	}

	for _, mac := range []string{"", "AABB", "AABBCCDDEEGG", "AA:BB:CC:DD:EE:FF:00"} {
		if _, err := EncodeAddClone(mac); !errors.Is(err, ErrValidation) {
			t.Errorf("EncodeAddClone(%q) = %v, want ErrValidation", mac, err)
		}
	}
}

func TestEncodeRawCommand(t *testing.T) {
	req, err := EncodeRawCommand("a", "")
	if err != nil {
		t.Fatalf("params only error: %v", err)
	}
	if req.Kind != KindParams || req.Value != "a" {
		t.Errorf("params only = %+v", req)
	}

	req, err = EncodeRawCommand("", "g0")
	if err != nil {
		t.Fatalf("ctrl only error: %v", err)
	}
	if req.Kind != KindCtrl || req.Value != "g0" {
		t.Errorf("ctrl only = %+v", req)
	}

	if _, err := EncodeRawCommand("a", "g0"); !errors.Is(err, ErrValidation) {
		t.Errorf("both set: got %v, want ErrValidation", err)
	}
	if _, err := EncodeRawCommand("", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("neither set: got %v, want ErrValidation", err)
	}
}

func TestEncodeSetTimezone(t *testing.T) {
	req, err := EncodeSetTimezone("2")
	if err != nil {
		t.Fatalf("EncodeSetTimezone() error: %v", err)
	}
	if req.Kind != KindCtrl || req.Value != "b2" {
		t.Errorf("EncodeSetTimezone() = %+v, want ctrl %q", req, "b2")
	}

	if _, err := EncodeSetTimezone(""); !errors.Is(err, ErrValidation) {
		t.Errorf("empty timezone: got %v, want ErrValidation", err)
	}
}
