//go:build !cgo && !windows
// +build !cgo,!windows

package menu

import (
	"context"
	"errors"
)

type stubController struct{}

func newTrayController(func(), func(context.Context, string)) trayController {
	return stubController{}
}

// Run fails immediately: the tray backend needs cgo on this platform.
func (stubController) Run(context.Context, <-chan UpdatePayload) error {
	return errors.New("system tray is unavailable without cgo support")
}
