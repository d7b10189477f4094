package action

import (
	"fmt"
	"net/url"
)

// OpenBrowser validates the URL and hands it to the platform launcher. Only
// http and https schemes are accepted; anything else is rejected before a
// process is spawned.
func OpenBrowser(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("open browser: refusing scheme %q", u.Scheme)
	}
	return launchURL(raw)
}
