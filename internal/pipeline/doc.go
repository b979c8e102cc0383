// Package pipeline implements the text stages of the diagram workflow.
//
//   - Line ending normalization
//   - Diagram block extraction from chapter Markdown via Goldmark
//   - Diagram kind detection
//   - Repair: named in-place rules per kind, or skeleton regeneration
//   - Review sheet rendering (highlighted diagram sources via Goldmark + Chroma)
//
// Everything here is pure text processing. Writing files and invoking
// renderers belongs to the store and render packages.
package pipeline
