// Package assets provides the HTML templates and renderer configuration
// used to rasterize diagrams.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (defaults)
//	    ├── FilesystemLoader  - loads from custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// # Directory Structure
//
//	{basePath}/
//	├── templates/
//	│   ├── wrapper.html     # page loaded by the browser backend
//	│   └── review.html      # per-chapter review sheet
//	└── renderer/
//	    └── default.json     # mermaid configuration passed to mmdc / mermaid.initialize
//
// # Security
//
// Asset names are validated to prevent path traversal attacks.
// FilesystemLoader resolves symlinks and verifies paths stay within basePath.
package assets
