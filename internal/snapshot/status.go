package snapshot

import "strings"

// authRequiredPhrases are the substrings the client's status output uses to
// signal that the user must complete a browser authentication flow.
var authRequiredPhrases = []string{
	"authentication is required",
	"auth required",
	"not authenticated",
	"user authentication is required",
	"authenticating",
}

// ParseStatus classifies the status command's textual output. The client
// prints free-form text, so classification is by substring, matching what the
// CLI is known to emit.
func ParseStatus(output string) ConnectionState {
	status := strings.ToLower(strings.TrimSpace(output))
	switch {
	case status == "":
		return StateError
	case strings.Contains(status, "not-running"), strings.Contains(status, "not running"):
		return StateNotRunning
	case containsAny(status, authRequiredPhrases):
		return StateAuthRequired
	case strings.Contains(status, "starting"):
		return StateStarting
	case strings.Contains(status, "connecting"):
		return StateConnecting
	// Negated forms first: "disconnected" and "offline" contain the
	// positive words as substrings.
	case strings.Contains(status, "disconnected"), strings.Contains(status, "offline"):
		return StateNotRunning
	case strings.Contains(status, "online"), strings.Contains(status, "connected"):
		return StateConnected
	default:
		// The provider is up and reporting something we do not recognize;
		// treat it as connected and let the resource fetch decide.
		return StateConnected
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
