package filterdecode

import (
	"strings"
	"testing"
)

func TestBiquadDecodeKeepsFirstChannel(t *testing.T) {
	filters := []RawFilter{
		{Name: "EQ_ch2_1_1", Type: "SC", Freq: "20", Q: "0.7", Gain: "5"},
		{Name: "EQ_ch1_1_1", Type: "SC", Freq: "20", Q: "0.7", Gain: "5"},
		{Name: "EQ_ch1_1_2", Type: "SC", Freq: "20", Q: "0.7", Gain: "5"},
		{Name: "EQ_ch1_1_3", Type: "PK", Freq: "35.5", Q: "2", Gain: "-2.5"},
		{Name: "EQ_ch1_1_4", Type: "PK", Freq: "1000", Q: "1", Gain: "0", Bypass: true},
	}
	got, err := Biquad{}.Decode(filters)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := "LS 20Hz Q0.7 +5.0dB, LS 20Hz Q0.7 +5.0dB, PK 35.5Hz Q2 -2.5dB"
	if got.Display != want {
		t.Fatalf("got %q want %q", got.Display, want)
	}
	if len(got.Structured) != 3 || got.Structured[2]["gain"] != "-2.5" {
		t.Fatalf("unexpected structured output %v", got.Structured)
	}
}

func TestBiquadDecodeUnnamedFilters(t *testing.T) {
	got, err := Biquad{}.Decode([]RawFilter{{Type: "high shelf", Freq: "100", Q: "0.5", Gain: "-3"}})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Display != "HS 100Hz Q0.5 -3.0dB" {
		t.Fatalf("unexpected display %q", got.Display)
	}
}

func TestBiquadDecodeEmpty(t *testing.T) {
	got, err := Biquad{}.Decode(nil)
	if err != nil || got.Display != "" || got.Structured != nil {
		t.Fatalf("expected empty filters, got %+v %v", got, err)
	}
}

func TestBiquadDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		filter RawFilter
		want   string
	}{
		{"missing type", RawFilter{Freq: "1", Q: "1", Gain: "1"}, "missing type"},
		{"bad freq", RawFilter{Type: "PK", Freq: "x", Q: "1", Gain: "1"}, "freq"},
		{"bad q", RawFilter{Type: "PK", Freq: "1", Q: "", Gain: "1"}, "q:"},
		{"bad gain", RawFilter{Type: "PK", Freq: "1", Q: "1", Gain: "loud"}, "gain"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Biquad{}.Decode([]RawFilter{tc.filter})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}
