package assets

import "errors"

// Sentinel errors for asset operations.
var (
	ErrTemplateNotFound       = errors.New("template not found")
	ErrRendererConfigNotFound = errors.New("renderer config not found")

	// ErrInvalidAssetName indicates the asset name contains path separators,
	// dots or traversal sequences.
	ErrInvalidAssetName = errors.New("invalid asset name")

	ErrInvalidBasePath = errors.New("invalid base path")
	ErrAssetRead       = errors.New("failed to read asset")
	ErrPathTraversal   = errors.New("path traversal detected")
)
