//go:build !windows && !darwin
// +build !windows,!darwin

package action

import "os/exec"

func launchURL(raw string) error {
	return exec.Command("xdg-open", raw).Start()
}
