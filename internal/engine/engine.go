// Package engine defines the extraction-engine port and its adapters.
//
// An engine resolves a video URL into metadata and encodings, and performs
// the actual network fetch into a request's scratch directory. Failures are
// classified (see types.ErrorClass) so the executor can apply retry policy.
package engine

import (
	"context"

	"github.com/famomatic/ytcourier/internal/types"
)

// FetchRequest describes one fetch attempt.
type FetchRequest struct {
	URL       string
	Selection types.FormatSelection
	Quality   types.Quality
	// ScratchDir receives the produced artifact(s). The engine may emit
	// auxiliary files; the output locator sorts the real media out.
	ScratchDir string
	// UserAgent optionally overrides the client identity for this attempt.
	UserAgent string
}

// Engine is the upstream extraction collaborator.
type Engine interface {
	// Probe fetches metadata and available encodings without downloading.
	Probe(ctx context.Context, url string) (*types.VideoMetadata, error)
	// Fetch downloads the selected encoding(s) into the scratch directory.
	Fetch(ctx context.Context, req FetchRequest) error
}
