package assets

// Built-in asset names.
const (
	WrapperTemplate       = "wrapper"
	ReviewTemplate        = "review"
	DefaultRendererConfig = "default"
)

// AssetLoader defines the contract for loading templates and renderer configs.
type AssetLoader interface {
	// LoadTemplate loads an HTML template by name (without .html extension).
	// Returns ErrTemplateNotFound if the template doesn't exist.
	LoadTemplate(name string) (string, error)

	// LoadRendererConfig loads a mermaid JSON config by name (without .json).
	// Returns ErrRendererConfigNotFound if the config doesn't exist.
	LoadRendererConfig(name string) (string, error)
}
