package snapshot

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   ConnectionState
	}{
		{"not running", "not-running\n", StateNotRunning},
		{"not running spaced", "Service is not running", StateNotRunning},
		{"online", "online\n", StateConnected},
		{"connected", "Connected to network", StateConnected},
		{"disconnected", "disconnected\n", StateNotRunning},
		{"offline", "Service is offline", StateNotRunning},
		{"auth required", "User authentication is required. Please visit https://auth.example.com", StateAuthRequired},
		{"authenticating", "authenticating...", StateAuthRequired},
		{"starting", "starting", StateStarting},
		{"connecting", "connecting", StateConnecting},
		{"empty", "", StateError},
		{"unrecognized", "all systems nominal", StateConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseStatus(tt.output); got != tt.want {
				t.Fatalf("ParseStatus(%q) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestConnectionStateString(t *testing.T) {
	tests := []struct {
		state ConnectionState
		want  string
	}{
		{StateNotRunning, "Not running"},
		{StateStarting, "Starting..."},
		{StateConnecting, "Connecting..."},
		{StateConnected, "Connected"},
		{StateAuthRequired, "Authentication required"},
		{StateError, "Error"},
		{ConnectionState(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Fatalf("ConnectionState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
