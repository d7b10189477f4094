package action

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable reports that no system clipboard could be reached.
var ErrClipboardUnavailable = errors.New("system clipboard unavailable")

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Write(text string) error
}

// SystemClipboard is the production Clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Write(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return errors.Join(ErrClipboardUnavailable, err)
	}
	return nil
}
