package engine

// Component is anything that can be registered with an Engine.
type Component interface {
	ID() string
}

// Plugin extends chart construction through the optional hook interfaces
// below. A plugin implements only the hooks it needs.
type Plugin interface {
	Component
}

// Controller draws the datasets of one chart type. ID returns the type name
// used in Config.Type and Dataset.Type.
type Controller interface {
	Component
	// Cartesian reports whether datasets are drawn against x and y scales.
	Cartesian() bool
	DrawDataset(c *Chart, index int) error
}

type BeforeInitHook interface {
	BeforeInit(c *Chart, opts PluginOptions) error
}

type AfterInitHook interface {
	AfterInit(c *Chart, opts PluginOptions) error
}

// BeforeLayoutHook runs before scales are fitted. Plugins reserve space for
// boxes such as titles and legends here.
type BeforeLayoutHook interface {
	BeforeLayout(c *Chart, opts PluginOptions) error
}

type BeforeDrawHook interface {
	BeforeDraw(c *Chart, opts PluginOptions) error
}

type BeforeDatasetsDrawHook interface {
	BeforeDatasetsDraw(c *Chart, opts PluginOptions) error
}

type AfterDatasetsDrawHook interface {
	AfterDatasetsDraw(c *Chart, opts PluginOptions) error
}

type AfterDrawHook interface {
	AfterDraw(c *Chart, opts PluginOptions) error
}

// AfterDestroyHook runs once when a chart is destroyed.
type AfterDestroyHook interface {
	AfterDestroy(c *Chart, opts PluginOptions)
}

// PluginFunc adapts a function into a plugin that runs in the afterDraw hook.
type PluginFunc struct {
	Name string
	Fn   func(c *Chart, opts PluginOptions) error
}

func (p PluginFunc) ID() string { return p.Name }

func (p PluginFunc) AfterDraw(c *Chart, opts PluginOptions) error {
	if p.Fn == nil {
		return nil
	}
	return p.Fn(c, opts)
}
