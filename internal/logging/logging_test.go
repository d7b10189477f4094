package logging

import "testing"

func TestMaskIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"abcd", "****"},
		{"alice@example.com", "*************.com"},
	}

	for _, tt := range tests {
		if got := MaskIdentifier(tt.in); got != tt.want {
			t.Fatalf("MaskIdentifier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExcerptTruncates(t *testing.T) {
	data := []byte("  hello world  ")
	if got := Excerpt(data, 5); got != "hello..." {
		t.Fatalf("unexpected excerpt: %q", got)
	}
	if got := Excerpt(data, 64); got != "hello world" {
		t.Fatalf("expected trimmed output, got %q", got)
	}
}

func TestExcerptBinary(t *testing.T) {
	if got := Excerpt([]byte{0xff, 0xfe, 0x00}, 16); got != "<binary output>" {
		t.Fatalf("unexpected excerpt for binary data: %q", got)
	}
}
