package action

import "testing"

func TestExtractAuthURL(t *testing.T) {
	cases := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "visit phrase",
			output: "Authentication required.\nPlease visit: https://auth.example.com/flow/abc123\n",
			want:   "https://auth.example.com/flow/abc123",
		},
		{
			name:   "go to phrase",
			output: "go to: https://auth.example.com/x1 to continue",
			want:   "https://auth.example.com/x1",
		},
		{
			name:   "bare url fallback",
			output: "open https://auth.example.com/flow in any browser",
			want:   "https://auth.example.com/flow",
		},
		{
			name:   "trailing punctuation trimmed",
			output: "visit: https://auth.example.com/flow.",
			want:   "https://auth.example.com/flow",
		},
		{
			name:   "bracketed url",
			output: "(see https://auth.example.com/flow)",
			want:   "https://auth.example.com/flow",
		},
		{
			name:   "too short rejected",
			output: "visit: https://x",
			want:   "",
		},
		{
			name:   "no url",
			output: "authentication failed, try again later",
			want:   "",
		},
		{
			name:   "non http scheme ignored",
			output: "visit: ftp://files.example.com/auth",
			want:   "",
		},
		{
			name:   "phrase without url falls back to later token",
			output: "please visit: your admin console\nhttps://auth.example.com/fallback\n",
			want:   "https://auth.example.com/fallback",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractAuthURL(tc.output); got != tc.want {
				t.Fatalf("ExtractAuthURL(%q) = %q, want %q", tc.output, got, tc.want)
			}
		})
	}
}
