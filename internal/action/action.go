// Package action executes user-initiated menu commands against the VPN
// client: service start/stop, resource authentication, clipboard copies and
// browser opens.
package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/example/twintray/internal/invoker"
	"github.com/example/twintray/internal/logging"
	"github.com/example/twintray/internal/snapshot"
)

// Kind identifies what a menu activation should do.
type Kind int

const (
	KindNone Kind = iota
	KindStart
	KindStop
	KindAuthenticate
	KindCopyAddress
	KindOpenURL
)

// String returns the kind's name for logs.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStart:
		return "start"
	case KindStop:
		return "stop"
	case KindAuthenticate:
		return "authenticate"
	case KindCopyAddress:
		return "copy-address"
	case KindOpenURL:
		return "open-url"
	default:
		return "unknown"
	}
}

// Token is the action bound to a menu node. A zero token does nothing.
type Token struct {
	Kind       Kind
	ResourceID string
	URL        string
}

// ErrPermissionDenied reports that the service command failed even after an
// elevated retry, or that the elevation prompt was dismissed.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNoAuthURL reports that the client's auth output contained no usable URL.
var ErrNoAuthURL = errors.New("no authentication URL in client output")

// ErrUnknownResource reports an action token naming a resource that is not in
// the current snapshot.
var ErrUnknownResource = errors.New("unknown resource")

// Notifier shows a desktop notification. Implementations must not block.
type Notifier interface {
	Notify(summary, body string)
}

// Dispatcher runs menu actions. Refresh and Source are wired by the caller to
// the poll loop: Refresh requests a coalesced poll after mutating actions and
// Source supplies the snapshot used to resolve resource ids.
type Dispatcher struct {
	ServiceCmd string
	ElevateCmd string

	Inv      invoker.Invoker
	Clip     Clipboard
	Notifier Notifier

	Refresh func()
	Source  func() *snapshot.Snapshot

	// openBrowser is replaceable in tests.
	openBrowser func(string) error
}

// NewDispatcher wires a Dispatcher to the given invoker and command names.
func NewDispatcher(inv invoker.Invoker, serviceCmd, elevateCmd string) *Dispatcher {
	return &Dispatcher{
		ServiceCmd:  serviceCmd,
		ElevateCmd:  elevateCmd,
		Inv:         inv,
		Clip:        SystemClipboard{},
		openBrowser: OpenBrowser,
	}
}

// Dispatch executes the action named by the token. It returns once the action
// has completed or failed; callers run it off the UI thread.
func (d *Dispatcher) Dispatch(ctx context.Context, tok Token) error {
	id := uuid.NewString()
	logging.Debugf("dispatch %s: kind=%s resource=%s", id, tok.Kind, tok.ResourceID)

	var err error
	switch tok.Kind {
	case KindNone:
		return nil
	case KindStart:
		err = d.serviceCommand(ctx, "start")
	case KindStop:
		err = d.serviceCommand(ctx, "stop")
	case KindAuthenticate:
		err = d.authenticate(ctx, tok.ResourceID)
	case KindCopyAddress:
		err = d.copyAddress(tok.ResourceID)
	case KindOpenURL:
		err = d.open(tok.URL)
	default:
		err = fmt.Errorf("unsupported action kind %d", tok.Kind)
	}

	if err != nil {
		logging.Debugf("dispatch %s failed: %v", id, err)
		d.notify("TwinTray", actionFailureText(tok.Kind, err))
		return err
	}

	logging.Debugf("dispatch %s completed", id)
	if mutatesState(tok.Kind) && d.Refresh != nil {
		d.Refresh()
	}
	return nil
}

func mutatesState(k Kind) bool {
	switch k {
	case KindStart, KindStop, KindAuthenticate:
		return true
	}
	return false
}

// serviceCommand runs the client subcommand, retrying elevated on a
// privilege failure.
func (d *Dispatcher) serviceCommand(ctx context.Context, sub string) error {
	_, err := d.runClient(ctx, sub)
	return err
}

// runClient invokes the client with the given arguments, then retries once
// via the elevation helper when the failure looks like a privilege problem.
// A failure of the elevated attempt is final. On success the returned result
// is from whichever attempt succeeded.
func (d *Dispatcher) runClient(ctx context.Context, args ...string) (invoker.Result, error) {
	res, err := d.Inv.Invoke(ctx, d.ServiceCmd, args...)
	if err != nil {
		return res, err
	}
	if res.ExitCode == 0 {
		return res, nil
	}
	if !permissionDenied(res) || d.ElevateCmd == "" {
		return res, invoker.NewProcessError(d.ServiceCmd, res)
	}

	joined := strings.Join(args, " ")
	logging.Debugf("%s %s denied (exit %d), retrying elevated", d.ServiceCmd, joined, res.ExitCode)
	res, err = d.Inv.Invoke(ctx, d.ElevateCmd, append([]string{d.ServiceCmd}, args...)...)
	if err != nil {
		return res, err
	}
	if res.ExitCode == 0 {
		return res, nil
	}
	return res, fmt.Errorf("%s %s: %w: %s", d.ServiceCmd, joined, ErrPermissionDenied,
		logging.Excerpt(res.Stderr, 256))
}

// Exit codes pkexec uses for a dismissed prompt and failed authorization.
const (
	exitNotExecutable = 126
	exitNotFound      = 127
)

var permissionMarkers = []string{
	"permission denied",
	"access denied",
	"operation not permitted",
	"must be run as root",
	"requires root",
	"not authorized",
}

func permissionDenied(res invoker.Result) bool {
	if res.ExitCode == exitNotExecutable || res.ExitCode == exitNotFound {
		return true
	}
	stderr := strings.ToLower(string(res.Stderr))
	for _, marker := range permissionMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}

// authenticate runs the client's auth flow and opens the URL the client
// prints. With a resource id the flow targets that resource; with an empty id
// it is the service-wide sign-in flow. Auth goes through the same elevated
// retry as start/stop, since the client needs the daemon socket.
func (d *Dispatcher) authenticate(ctx context.Context, resourceID string) error {
	args := []string{"auth"}
	display := "the network"
	if resourceID != "" {
		r, err := d.resource(resourceID)
		if err != nil {
			return err
		}
		args = append(args, r.ID)
		display = r.DisplayName()
	}

	res, err := d.runClient(ctx, args...)
	if err != nil {
		return err
	}

	combined := string(res.Stdout) + "\n" + string(res.Stderr)
	authURL := ExtractAuthURL(combined)
	if authURL == "" {
		return fmt.Errorf("auth %s: %w", display, ErrNoAuthURL)
	}

	d.notify("TwinTray", fmt.Sprintf("Complete authentication for %s in your browser: %s", display, authURL))
	return d.open(authURL)
}

func (d *Dispatcher) copyAddress(resourceID string) error {
	r, err := d.resource(resourceID)
	if err != nil {
		return err
	}
	if err := d.Clip.Write(r.DisplayAddress()); err != nil {
		return err
	}
	d.notify("TwinTray", fmt.Sprintf("Copied %s", r.DisplayAddress()))
	return nil
}

func (d *Dispatcher) open(raw string) error {
	if d.openBrowser == nil {
		d.openBrowser = OpenBrowser
	}
	return d.openBrowser(raw)
}

func (d *Dispatcher) resource(id string) (snapshot.Resource, error) {
	if d.Source == nil {
		return snapshot.Resource{}, fmt.Errorf("resource %s: %w", id, ErrUnknownResource)
	}
	snap := d.Source()
	if snap == nil {
		return snapshot.Resource{}, fmt.Errorf("resource %s: %w", id, ErrUnknownResource)
	}
	r, ok := snap.Resource(id)
	if !ok {
		return snapshot.Resource{}, fmt.Errorf("resource %s: %w", id, ErrUnknownResource)
	}
	return r, nil
}

func (d *Dispatcher) notify(summary, body string) {
	if d.Notifier == nil {
		return
	}
	d.Notifier.Notify(summary, body)
}

func actionFailureText(k Kind, err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Action requires elevated privileges"
	case errors.Is(err, ErrNoAuthURL):
		return "Client did not provide an authentication link"
	case errors.Is(err, ErrClipboardUnavailable):
		return "Clipboard is not available"
	default:
		return fmt.Sprintf("Action %s failed: %v", k, err)
	}
}
