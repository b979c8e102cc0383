package main

import (
	"fmt"
	"log/slog"

	"github.com/nkkko/ai-agent-patterns/internal/assets"
	"github.com/nkkko/ai-agent-patterns/internal/config"
	"github.com/nkkko/ai-agent-patterns/internal/log"
	"github.com/nkkko/ai-agent-patterns/internal/pipeline"
	"github.com/nkkko/ai-agent-patterns/internal/render"
	"github.com/nkkko/ai-agent-patterns/internal/store"
	"github.com/nkkko/ai-agent-patterns/internal/workflow"
)

// loadRunConfig resolves the effective configuration:
// CLI flags > MERMAID_WORKFLOW_* env vars > config file > defaults.
func loadRunConfig(f *runFlags, env *Environment) (*config.Config, error) {
	envCfg := loadEnvConfig(env.Getenv)
	warnUnknownEnvVars(env.Environ(), env.Stderr)

	name := f.common.config
	if name == "" {
		name = envCfg.ConfigPath
	}

	var cfg *config.Config
	if name != "" {
		loaded, err := config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		base := config.DefaultConfig()
		if env.Config != nil {
			copied := *env.Config
			base = &copied
		}
		cfg = base
	}

	applyEnvConfig(envCfg, cfg)
	mergeFlags(f, cfg)

	if err := validateWorkers(cfg.Render.Workers); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRunLogger builds the run logger from the verbosity flags.
func newRunLogger(f commonFlags, env *Environment) *slog.Logger {
	return log.NewLogger(log.LoggerConfig{
		Version: Version,
		Out:     env.Stderr,
		Level:   log.ParseLevel(f.verbose, f.quiet),
		JSON:    f.logJSON,
	})
}

// buildDriver wires the configured components into a workflow.Driver.
func buildDriver(cfg *config.Config, mode workflow.Mode, env *Environment) (*workflow.Driver, error) {
	collision, err := store.ParseCollisionPolicy(cfg.Chapters.Collision)
	if err != nil {
		return nil, err
	}
	loader, err := assets.NewAssetResolver(cfg.Assets.BasePath)
	if err != nil {
		return nil, err
	}

	opts := []workflow.Option{
		workflow.WithExtractor(pipeline.NewExtractor(cfg.Chapters.FenceTag)),
		workflow.WithStore(store.New(store.Options{
			Root:        cfg.Chapters.Dir,
			DiagramsDir: cfg.Chapters.DiagramsDir,
			Extension:   cfg.Chapters.Extension,
			Collision:   collision,
		})),
		workflow.WithImagesDir(cfg.Chapters.ImagesDir),
		workflow.WithWorkers(cfg.Render.Workers),
		workflow.WithTimeout(cfg.RenderTimeout(render.DefaultTimeout)),
	}

	if cfg.Repair.Enabled {
		strategy, err := pipeline.ParseStrategy(cfg.Repair.Strategy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, workflow.WithRepairer(pipeline.NewRepairer(strategy, cfg.Repair.Disable...)))
	} else {
		opts = append(opts, workflow.WithRepairer(nil))
	}

	var newBackend func() render.Backend
	if mode != workflow.ModeExtract {
		newBackend, err = env.NewBackend(cfg, loader)
		if err != nil {
			return nil, err
		}

		if pp := cfg.PostProcess; pp.Enabled {
			opts = append(opts, workflow.WithPostProcessor(render.NewMagick(render.MagickOptions{
				Bin:         pp.Bin,
				Trim:        pp.Trim,
				Padding:     pp.Padding,
				BorderColor: pp.BorderColor,
				Density:     pp.Density,
				Quality:     pp.Quality,
			})))
		}

		if cfg.Review.Enabled {
			tpl, err := loader.LoadTemplate(assets.ReviewTemplate)
			if err != nil {
				return nil, fmt.Errorf("loading review template: %w", err)
			}
			opts = append(opts, workflow.WithReview(tpl, cfg.Review.Title))
		}
	}

	return workflow.New(cfg.Chapters.Dir, newBackend, opts...), nil
}

// newBackendFactory returns a constructor for the configured renderer.
// Backends are cheap to build; processes start on first render.
func newBackendFactory(cfg *config.Config, loader assets.AssetLoader) (func() render.Backend, error) {
	raw, err := loader.LoadRendererConfig(assets.DefaultRendererConfig)
	if err != nil {
		return nil, fmt.Errorf("loading mermaid config: %w", err)
	}
	mermaidConfig, err := render.MermaidConfig(raw, cfg.Render.Theme)
	if err != nil {
		return nil, err
	}

	opts := render.Options{
		Width:      cfg.Render.Width,
		Height:     cfg.Render.Height,
		Background: cfg.Render.Background,
		Theme:      cfg.Render.Theme,
		Scale:      cfg.Render.Scale,
		Timeout:    cfg.RenderTimeout(render.DefaultTimeout),
	}

	switch cfg.Render.Backend {
	case render.BackendCLI, "":
		bin := cfg.Render.CLI.Bin
		return func() render.Backend { return render.NewCLIBackend(bin, mermaidConfig, opts) }, nil

	case render.BackendBrowser:
		text, err := loader.LoadTemplate(assets.WrapperTemplate)
		if err != nil {
			return nil, fmt.Errorf("loading wrapper template: %w", err)
		}
		wrapper, err := render.ParseWrapper(text)
		if err != nil {
			return nil, err
		}
		bopts := render.BrowserOptions{
			Options:   opts,
			Bin:       cfg.Render.Browser.Bin,
			ScriptURL: cfg.Render.Browser.ScriptURL,
			NoSandbox: cfg.Render.Browser.NoSandbox,
			Download:  cfg.Render.Browser.Download,
		}
		return func() render.Backend { return render.NewBrowserBackend(wrapper, mermaidConfig, bopts) }, nil

	default:
		return nil, fmt.Errorf("%w: %q", render.ErrUnknownBackend, cfg.Render.Backend)
	}
}
