//go:build cgo || windows
// +build cgo windows

package menu

import (
	"context"
	"runtime"
	"sync"

	"github.com/getlantern/systray"

	"github.com/example/twintray/internal/snapshot"
)

type systrayController struct {
	requestRefresh func()
	onActivate     func(ctx context.Context, key string)

	mu      sync.Mutex
	entries []trayEntry
	items   map[string]*systray.MenuItem
	keys    []string
}

type trayEntry struct {
	item   *systray.MenuItem
	cancel context.CancelFunc
}

func newTrayController(requestRefresh func(), onActivate func(context.Context, string)) trayController {
	return &systrayController{
		requestRefresh: requestRefresh,
		onActivate:     onActivate,
		items:          make(map[string]*systray.MenuItem),
	}
}

func (c *systrayController) Run(ctx context.Context, updates <-chan UpdatePayload) error {
	done := make(chan struct{})

	go systray.Run(func() {
		icon := IconFor(snapshot.StateNotRunning, false)
		systray.SetIcon(icon)
		if runtime.GOOS == "darwin" {
			systray.SetTemplateIcon(icon, icon)
		}
		systray.SetTooltip("TwinTray")

		refresh := systray.AddMenuItem("Refresh Now", "Poll the client immediately")
		quit := systray.AddMenuItem("Quit TwinTray", "Exit the application")
		go func() {
			for {
				select {
				case <-ctx.Done():
					systray.Quit()
					return
				case <-refresh.ClickedCh:
					if c.requestRefresh != nil {
						c.requestRefresh()
					}
				case <-quit.ClickedCh:
					systray.Quit()
					return
				}
			}
		}()

		go c.listen(ctx, updates)
	}, func() {
		c.shutdown()
		close(done)
	})

	select {
	case <-ctx.Done():
		systray.Quit()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *systrayController) listen(ctx context.Context, updates <-chan UpdatePayload) {
	for {
		select {
		case <-ctx.Done():
			systray.Quit()
			return
		case update, ok := <-updates:
			if !ok {
				systray.Quit()
				return
			}
			if len(update.Icon) > 0 {
				systray.SetIcon(update.Icon)
				if runtime.GOOS == "darwin" {
					systray.SetTemplateIcon(update.Icon, update.Icon)
				}
			}
			if update.Tooltip != "" {
				systray.SetTooltip(update.Tooltip)
			}
			c.render(ctx, update.Nodes)
		}
	}
}

// render applies a published tree. When the key sequence is unchanged the
// existing widgets are mutated in place; otherwise the old entries are hidden
// and the tree is rebuilt.
func (c *systrayController) render(ctx context.Context, nodes []*Node) {
	newKeys := flattenKeys(nodes, nil)

	c.mu.Lock()
	sameShape := equalKeys(c.keys, newKeys)
	c.mu.Unlock()

	if sameShape {
		c.mu.Lock()
		applyInPlace(c.items, nodes)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	old := c.entries
	c.entries = nil
	c.items = make(map[string]*systray.MenuItem)
	c.keys = newKeys
	c.mu.Unlock()

	for _, entry := range old {
		entry.cancel()
		if entry.item != nil {
			entry.item.Hide()
		}
	}

	newEntries := c.renderNodes(ctx, nodes, nil)

	c.mu.Lock()
	c.entries = newEntries
	c.mu.Unlock()
}

func applyInPlace(items map[string]*systray.MenuItem, nodes []*Node) {
	for _, n := range nodes {
		if mi, ok := items[n.Key]; ok && n.Kind != NodeSeparator {
			mi.SetTitle(n.Label)
			mi.SetTooltip(n.Tooltip)
			if n.Disabled {
				mi.Disable()
			} else {
				mi.Enable()
			}
		}
		applyInPlace(items, n.Children)
	}
}

func (c *systrayController) renderNodes(ctx context.Context, nodes []*Node, parent *systray.MenuItem) []trayEntry {
	entries := make([]trayEntry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, c.addNode(ctx, n, parent)...)
	}
	return entries
}

func (c *systrayController) addNode(ctx context.Context, n *Node, parent *systray.MenuItem) []trayEntry {
	if n.Kind == NodeSeparator {
		// Separators render as a disabled rule so they can be hidden on
		// rebuild; systray's native separators cannot be removed.
		mi := c.makeItem(parent, &Node{Label: "──────────"})
		mi.Disable()
		c.mu.Lock()
		c.items[n.Key] = mi
		c.mu.Unlock()
		return []trayEntry{{item: mi, cancel: func() {}}}
	}

	mi := c.makeItem(parent, n)
	if n.Disabled {
		mi.Disable()
	}
	c.mu.Lock()
	c.items[n.Key] = mi
	c.mu.Unlock()

	ctxItem, cancel := context.WithCancel(ctx)
	go c.forwardClicks(ctxItem, mi.ClickedCh, n.Key)

	entries := []trayEntry{{item: mi, cancel: cancel}}
	if n.Kind == NodeSubmenu {
		entries = append(entries, c.renderNodes(ctx, n.Children, mi)...)
	}
	return entries
}

func (c *systrayController) makeItem(parent *systray.MenuItem, n *Node) *systray.MenuItem {
	if parent == nil {
		return systray.AddMenuItem(n.Label, n.Tooltip)
	}
	return parent.AddSubMenuItem(n.Label, n.Tooltip)
}

// forwardClicks reports activations by key. The action bound to the key is
// resolved at click time, so widgets never need to be rebound after updates.
func (c *systrayController) forwardClicks(ctx context.Context, ch <-chan struct{}, key string) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if c.onActivate != nil {
				c.onActivate(ctx, key)
			}
		}
	}
}

func (c *systrayController) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range c.entries {
		entry.cancel()
	}
	c.entries = nil
	c.items = make(map[string]*systray.MenuItem)
	c.keys = nil
}
