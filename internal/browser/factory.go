package browser

import (
	"context"
	"fmt"

	"tabward/internal/config"
	"tabward/internal/reaper"
)

// NewDirectoryFromConfig creates a TabDirectory based on the browser config type.
func NewDirectoryFromConfig(ctx context.Context, cfg config.BrowserConfig, log reaper.Logger) (reaper.TabDirectory, error) {
	switch cfg.Type {
	case "cdp", "":
		if cfg.DevtoolsURL == "" {
			return nil, fmt.Errorf("cdp browser requires devtools_url to be set")
		}
		return NewCDPDirectory(ctx, cfg.DevtoolsURL, log)
	case "memory":
		return NewMemoryDirectory(), nil
	default:
		return nil, fmt.Errorf("unknown browser type: %s", cfg.Type)
	}
}
