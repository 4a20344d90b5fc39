package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		want    zapcore.Level
		wantErr bool
	}{
		{"info", "json", zapcore.InfoLevel, false},
		{"", "", zapcore.InfoLevel, false},
		{"debug", "console", zapcore.DebugLevel, false},
		{"warn", "json", zapcore.WarnLevel, false},
		{"loud", "json", 0, true},
		{"info", "xml", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.level+"/"+tc.format, func(t *testing.T) {
			logger, err := New(tc.level, tc.format)
			if tc.wantErr {
				if err == nil {
					t.Errorf("New(%q, %q) expected error", tc.level, tc.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q, %q) error: %v", tc.level, tc.format, err)
			}
			defer logger.Sync()

			if !logger.Core().Enabled(tc.want) {
				t.Errorf("level %v not enabled", tc.want)
			}
			if tc.want > zapcore.DebugLevel && logger.Core().Enabled(tc.want-1) {
				t.Errorf("level %v enabled, want %v minimum", tc.want-1, tc.want)
			}
		})
	}
}
