// Package notify shows desktop notifications over the session bus. Failures
// are logged and swallowed: a missing notification daemon must never affect
// the tray.
package notify

import (
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/example/twintray/internal/logging"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	method     = "org.freedesktop.Notifications.Notify"

	expireMillis = 5000
)

// Desktop sends notifications via org.freedesktop.Notifications. The zero
// value is unusable; use New.
type Desktop struct {
	appName string
	enabled bool

	mu   sync.Mutex
	conn *dbus.Conn
}

// New returns a notifier for the given application name. When enabled is
// false every Notify call is a no-op.
func New(appName string, enabled bool) *Desktop {
	return &Desktop{appName: appName, enabled: enabled}
}

// Notify shows a transient notification. It never blocks on the notification
// daemon and never returns an error; delivery is best effort.
func (d *Desktop) Notify(summary, body string) {
	if d == nil || !d.enabled {
		return
	}
	go d.send(summary, body)
}

func (d *Desktop) send(summary, body string) {
	conn, err := d.connection()
	if err != nil {
		logging.Debugf("notification bus unavailable: %v", err)
		return
	}

	obj := conn.Object(busName, objectPath)
	call := obj.Call(method, 0,
		d.appName,         // app_name
		uint32(0),         // replaces_id
		"",                // app_icon
		summary,
		body,
		[]string{},        // actions
		map[string]dbus.Variant{},
		int32(expireMillis),
	)
	if call.Err != nil {
		logging.Debugf("notification delivery failed: %v", call.Err)
		d.reset()
	}
}

func (d *Desktop) connection() (*dbus.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return d.conn, nil
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	d.conn = conn
	return conn, nil
}

// reset drops the cached connection so the next notification reconnects.
func (d *Desktop) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn = nil
}
