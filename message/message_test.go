package message

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSeverityString(t *testing.T) {
	tests := []struct {
		want string
		sev  Severity
	}{
		{"info", Info},
		{"warning", Warning},
		{"error", Error},
		{"fatal", Fatal},
		{"unknown", Severity(9)},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.sev.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseSeverity(t *testing.T) {
	for _, sev := range []Severity{Info, Warning, Error, Fatal} {
		got, err := ParseSeverity(sev.String())
		if err != nil || got != sev {
			t.Errorf("ParseSeverity(%q) = %v, %v", sev.String(), got, err)
		}
	}
	if got, err := ParseSeverity("WARNING"); err != nil || got != Warning {
		t.Errorf("ParseSeverity is case-sensitive: %v, %v", got, err)
	}
	if _, err := ParseSeverity("loud"); err == nil {
		t.Error("expected error for unknown severity")
	}
}

func TestZapRequesterLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewZapRequester(zap.New(core), "decoder")

	r.ReportMessage("a", Info)
	r.ReportMessage("b", Warning)
	r.ReportMessage("c", Error)
	r.ReportMessage("d", Fatal)

	want := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel, zapcore.ErrorLevel}
	entries := logs.All()
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Level != want[i] {
			t.Errorf("entry %d level = %v, want %v", i, e.Level, want[i])
		}
		if e.ContextMap()["requester"] != "decoder" {
			t.Errorf("entry %d missing requester field", i)
		}
	}
	if entries[3].ContextMap()["fatal"] != true {
		t.Error("fatal message should carry fatal=true")
	}
}

func TestRequesterFunc(t *testing.T) {
	var got []string
	r := RequesterFunc(func(text string, sev Severity) {
		got = append(got, sev.String()+":"+text)
	})
	r.ReportMessage("x", Warning)
	Discard.ReportMessage("ignored", Error)
	if len(got) != 1 || got[0] != "warning:x" {
		t.Errorf("got %v", got)
	}
}
