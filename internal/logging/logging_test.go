package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level       string
		development bool
		wantLevel   zapcore.Level
		wantErr     bool
	}{
		{level: "info", wantLevel: zapcore.InfoLevel},
		{level: "debug", development: true, wantLevel: zapcore.DebugLevel},
		{level: "WARN", wantLevel: zapcore.WarnLevel},
		{level: "", wantLevel: zapcore.InfoLevel},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level, tt.development)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := logger.Level(); got != tt.wantLevel {
				t.Errorf("Level() = %v, want %v", got, tt.wantLevel)
			}
		})
	}
}
