package util

import "testing"

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		set          bool
		defaultValue float64
		want         float64
	}{
		{name: "unset returns default", defaultValue: 1.2, want: 1.2},
		{name: "fractional value", value: "0.85", set: true, defaultValue: 1.2, want: 0.85},
		{name: "integer value", value: "2", set: true, defaultValue: 1.2, want: 2},
		{name: "unparsable returns default", value: "high", set: true, defaultValue: 1.2, want: 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("GRAPH_RESOLUTION", tt.value)
			}
			if got := GetEnvFloat("GRAPH_RESOLUTION", tt.defaultValue); got != tt.want {
				t.Errorf("GetEnvFloat() = %v, want %v", got, tt.want)
			}
		})
	}
}
