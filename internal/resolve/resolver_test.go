package resolve

import (
	"errors"
	"testing"

	"github.com/famomatic/ytcourier/internal/types"
)

func TestResolve_ProgressivePreferred(t *testing.T) {
	encodings := []types.EncodingDescriptor{
		{FormatID: 137, Container: "mp4", Height: 1080, HasVideo: true, ApproxSizeBytes: 90 << 20},
		{FormatID: 18, Container: "mp4", Height: 360, HasVideo: true, HasAudio: true, ApproxSizeBytes: 12 << 20},
		{FormatID: 140, Container: "m4a", HasAudio: true, ApproxSizeBytes: 4 << 20},
	}

	sel, err := Resolve(encodings, types.Quality360p)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sel.Strategy != types.StrategyProgressive {
		t.Fatalf("Resolve() strategy = %s, want progressive", sel.Strategy)
	}
	if sel.VideoFormatID != 18 {
		t.Fatalf("Resolve() format = %d, want 18", sel.VideoFormatID)
	}
}

func TestResolve_ProgressiveNeverMergeWhenAvailable(t *testing.T) {
	// Any list containing a progressive mp4 at or below target must not merge.
	encodings := []types.EncodingDescriptor{
		{FormatID: 136, Container: "mp4", Height: 720, HasVideo: true, ApproxSizeBytes: 50 << 20},
		{FormatID: 140, Container: "m4a", HasAudio: true, ApproxSizeBytes: 4 << 20},
		{FormatID: 18, Container: "mp4", Height: 360, HasVideo: true, HasAudio: true, ApproxSizeBytes: 12 << 20},
	}
	sel, err := Resolve(encodings, types.Quality720p)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sel.Strategy == types.StrategyMerge {
		t.Fatal("Resolve() chose merge despite progressive candidate at or below target")
	}
}

func TestResolve_MergePicksMaxHeightBelowTarget(t *testing.T) {
	encodings := []types.EncodingDescriptor{
		{FormatID: 137, Container: "mp4", Height: 1080, HasVideo: true, ApproxSizeBytes: 90 << 20},
		{FormatID: 136, Container: "mp4", Height: 720, HasVideo: true, ApproxSizeBytes: 50 << 20},
		{FormatID: 135, Container: "mp4", Height: 480, HasVideo: true, ApproxSizeBytes: 25 << 20},
		{FormatID: 140, Container: "m4a", HasAudio: true, ApproxSizeBytes: 4 << 20},
		{FormatID: 251, Container: "webm", HasAudio: true, ApproxSizeBytes: 5 << 20},
	}

	sel, err := Resolve(encodings, types.Quality720p)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sel.Strategy != types.StrategyMerge {
		t.Fatalf("Resolve() strategy = %s, want merge", sel.Strategy)
	}
	if sel.VideoFormatID != 136 {
		t.Fatalf("Resolve() video format = %d, want 136 (max height <= 720)", sel.VideoFormatID)
	}
	if sel.AudioFormatID != 251 {
		t.Fatalf("Resolve() audio format = %d, want 251 (larger size)", sel.AudioFormatID)
	}
}

func TestResolve_MergeSkipsEncodingsOverTarget(t *testing.T) {
	encodings := []types.EncodingDescriptor{
		{FormatID: 137, Container: "mp4", Height: 1080, HasVideo: true, ApproxSizeBytes: 90 << 20},
		{FormatID: 135, Container: "mp4", Height: 480, HasVideo: true, ApproxSizeBytes: 25 << 20},
		{FormatID: 140, Container: "m4a", HasAudio: true, ApproxSizeBytes: 4 << 20},
	}

	sel, err := Resolve(encodings, types.Quality720p)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sel.Strategy != types.StrategyMerge {
		t.Fatalf("Resolve() strategy = %s, want merge", sel.Strategy)
	}
	if sel.VideoFormatID != 135 {
		t.Fatalf("Resolve() video format = %d, want 135 (480p is max <= 720p)", sel.VideoFormatID)
	}
}

func TestResolve_FallbackWhenNothingMatches(t *testing.T) {
	encodings := []types.EncodingDescriptor{
		{FormatID: 313, Container: "webm", Height: 2160, HasVideo: true, ApproxSizeBytes: 400 << 20},
		{FormatID: 271, Container: "webm", Height: 1440, HasVideo: true, ApproxSizeBytes: 200 << 20},
	}

	sel, err := Resolve(encodings, types.Quality360p)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sel.Strategy != types.StrategyFallback {
		t.Fatalf("Resolve() strategy = %s, want fallback", sel.Strategy)
	}
	if sel.VideoFormatID != 313 {
		t.Fatalf("Resolve() format = %d, want highest-height 313", sel.VideoFormatID)
	}
}

func TestResolve_TieBreakContainerThenSize(t *testing.T) {
	encodings := []types.EncodingDescriptor{
		{FormatID: 1, Container: "webm", Height: 360, HasVideo: true, HasAudio: true, ApproxSizeBytes: 20 << 20},
		{FormatID: 2, Container: "mp4", Height: 360, HasVideo: true, HasAudio: true, ApproxSizeBytes: 10 << 20},
		{FormatID: 3, Container: "mp4", Height: 360, HasVideo: true, HasAudio: true, ApproxSizeBytes: 15 << 20},
	}

	sel, err := Resolve(encodings, types.Quality360p)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sel.VideoFormatID != 3 {
		t.Fatalf("Resolve() format = %d, want 3 (mp4, larger size)", sel.VideoFormatID)
	}
}

func TestResolve_EmptyEncodings(t *testing.T) {
	_, err := Resolve(nil, types.Quality360p)
	if !errors.Is(err, types.ErrNoMatchingFormat) {
		t.Fatalf("Resolve(nil) error = %v, want ErrNoMatchingFormat", err)
	}
}
