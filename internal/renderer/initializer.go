package renderer

import (
	"context"
	"fmt"

	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

// initialize builds a fresh engine and applies, in order: the plugin set
// (requireChartJSLegacy, globalVariableLegacy, modern, requireLegacy), the
// chart callback, then the background fill. The first failure aborts and the
// partial engine is dropped.
func initialize(ctx context.Context, cfg *Config, loader *plugin.Loader) (*engine.Engine, error) {
	e := engine.New()
	scope := plugin.NewScope(e)

	for _, entry := range cfg.Plugins.Entries() {
		if err := plugin.Apply(ctx, loader, scope, entry); err != nil {
			return nil, err
		}
		Logger().DebugContext(ctx, "plugin applied", "entry", entry.String())
	}

	if cfg.ChartCallback != nil {
		if err := cfg.ChartCallback(ctx, e); err != nil {
			return nil, fmt.Errorf("chart callback failed: %w", err)
		}
	}

	if cfg.BackgroundColour != "" {
		bg, err := NewBackgroundFillPlugin(cfg.Width, cfg.Height, cfg.BackgroundColour)
		if err != nil {
			return nil, newConfigurationError("%v", err)
		}
		if err := e.Register(bg); err != nil {
			return nil, err
		}
	}

	Logger().DebugContext(ctx, "engine ready", "plugins", len(e.Registry().Plugins()))
	return e, nil
}
