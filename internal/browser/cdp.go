// Package browser provides TabDirectory backends: a live browser attached
// over the DevTools protocol and an in-memory fake.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"tabward/internal/reaper"
)

// CDPDirectory drives a running browser over the DevTools protocol (start the
// browser with --remote-debugging-port). The protocol does not expose pinned
// state or window focus, so tabs report pinned=false and active=false here;
// activity is inferred from target-info changes. The engine's semantics do
// not depend on which backend feeds it.
type CDPDirectory struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	log        reaper.Logger
}

var _ reaper.TabDirectory = (*CDPDirectory)(nil)

// NewCDPDirectory attaches to the browser's DevTools endpoint. The connection
// is established eagerly so a misconfigured endpoint fails at startup.
func NewCDPDirectory(ctx context.Context, devtoolsURL string, log reaper.Logger) (*CDPDirectory, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, devtoolsURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		browserCancel()
		allocCancel()
	}

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("connecting to browser at %s: %w", devtoolsURL, err)
	}

	return &CDPDirectory{
		browserCtx: browserCtx,
		cancel:     cancel,
		log:        log,
	}, nil
}

// Close tears down the browser connection.
func (d *CDPDirectory) Close() error {
	d.cancel()
	return nil
}

func (d *CDPDirectory) ListTabs(ctx context.Context) ([]reaper.Tab, error) {
	infos, err := chromedp.Targets(d.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	var tabs []reaper.Tab
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		tabs = append(tabs, tabFromTarget(info))
	}
	return tabs, nil
}

func (d *CDPDirectory) GetTab(ctx context.Context, id string) (*reaper.Tab, error) {
	tabs, err := d.ListTabs(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tabs {
		if tabs[i].ID == id {
			return &tabs[i], nil
		}
	}
	return nil, nil
}

func (d *CDPDirectory) CloseTab(ctx context.Context, id string) error {
	if err := target.CloseTarget(target.ID(id)).Do(d.executor(ctx)); err != nil {
		return fmt.Errorf("closing target %s: %w", id, err)
	}
	return nil
}

func (d *CDPDirectory) OpenTab(ctx context.Context, url string) error {
	if _, err := target.CreateTarget(url).Do(d.executor(ctx)); err != nil {
		return fmt.Errorf("creating target for %s: %w", url, err)
	}
	return nil
}

// Watch enables target discovery and streams page-target notifications until
// ctx is done.
func (d *CDPDirectory) Watch(ctx context.Context, events chan<- reaper.TabEvent) error {
	chromedp.ListenBrowser(d.browserCtx, func(ev interface{}) {
		var out reaper.TabEvent
		switch ev := ev.(type) {
		case *target.EventTargetInfoChanged:
			if ev.TargetInfo == nil || ev.TargetInfo.Type != "page" {
				return
			}
			// URL/title settling is the closest signal the protocol gives for
			// a completed navigation.
			out = reaper.TabEvent{
				Type:   reaper.TabUpdatedEvent,
				TabID:  string(ev.TargetInfo.TargetID),
				Status: "complete",
			}
		case *target.EventTargetDestroyed:
			out = reaper.TabEvent{
				Type:  reaper.TabRemovedEvent,
				TabID: string(ev.TargetID),
			}
		default:
			return
		}

		select {
		case events <- out:
		case <-ctx.Done():
		}
	})

	if err := target.SetDiscoverTargets(true).Do(d.executor(ctx)); err != nil {
		return fmt.Errorf("enabling target discovery: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil
	case <-d.browserCtx.Done():
		return fmt.Errorf("browser connection lost")
	}
}

// executor returns a context that routes protocol commands over the browser
// connection.
func (d *CDPDirectory) executor(ctx context.Context) context.Context {
	c := chromedp.FromContext(d.browserCtx)
	return cdp.WithExecutor(ctx, c.Browser)
}

func tabFromTarget(info *target.Info) reaper.Tab {
	return reaper.Tab{
		ID:       string(info.TargetID),
		URL:      info.URL,
		Title:    info.Title,
		WindowID: string(info.BrowserContextID),
	}
}
