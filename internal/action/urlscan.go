package action

import "strings"

// Phrases that precede an authentication URL in the client's auth output.
// Checked in order before falling back to any http(s) token.
var urlPatterns = []string{
	"please visit:",
	"visit:",
	"go to:",
	"open:",
	"navigate to:",
}

const minAuthURLLength = 10

// ExtractAuthURL scans command output for the authentication URL the client
// asks the user to open. It prefers a URL announced by a known phrase and
// falls back to the first http(s) token anywhere in the output. Returns ""
// when no plausible URL is present.
func ExtractAuthURL(output string) string {
	lowered := strings.ToLower(output)
	for _, pattern := range urlPatterns {
		idx := strings.Index(lowered, pattern)
		if idx < 0 {
			continue
		}
		rest := output[idx+len(pattern):]
		if u := firstURLToken(rest); u != "" {
			return u
		}
	}
	return firstURLToken(output)
}

func firstURLToken(s string) string {
	for _, field := range strings.Fields(s) {
		if !strings.HasPrefix(field, "http://") && !strings.HasPrefix(field, "https://") {
			continue
		}
		u := strings.TrimRight(field, `.,)]}"'`)
		if len(u) > minAuthURLLength {
			return u
		}
	}
	return ""
}
