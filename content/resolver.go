package content

import (
	"context"
	"fmt"
)

// ResolvedAsset is image data ready for embedding, dimensions already scaled
// to fit the page content box.
type ResolvedAsset struct {
	Data   []byte
	Format string // "png" or "jpeg"
	Width  int64  // EMU
	Height int64  // EMU
}

// AssetResolver supplies image and diagram content to the renderer. The
// renderer never touches network or filesystem directly, so it can be tested
// with a fake resolver.
type AssetResolver interface {
	// Image resolves a local path or remote URL to embeddable image data.
	Image(ctx context.Context, ref string) (*ResolvedAsset, error)
	// Diagram renders diagram source text to embeddable image data.
	Diagram(ctx context.Context, source string) (*ResolvedAsset, error)
}

// UnresolvedAssetError records an image or diagram that could not be
// resolved. It is recoverable - the renderer substitutes a placeholder and
// the conversion continues.
type UnresolvedAssetError struct {
	Ref string
	Err error
}

func (e *UnresolvedAssetError) Error() string {
	return fmt.Sprintf("unresolved asset %q: %v", e.Ref, e.Err)
}

func (e *UnresolvedAssetError) Unwrap() error {
	return e.Err
}
