package logging

import "testing"

func TestNewLevels(t *testing.T) {
	for _, tc := range []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "console", false},
		{"DEBUG", "json", false},
		{"verbose", "console", true},
	} {
		logger, closeFn, err := New(tc.level, tc.format)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("level %q: expected error", tc.level)
			}
			continue
		}
		if err != nil {
			t.Fatalf("level %q: %v", tc.level, err)
		}
		logger.Debug("probe")
		closeFn()
	}
}
