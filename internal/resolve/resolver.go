// Package resolve picks the encoding(s) to fetch for a target quality.
//
// Modern platforms split high resolutions into separate video/audio tracks
// (DASH-style) while low resolutions remain single-file progressive. The
// resolver tries progressive first and only pays the merge cost when needed.
package resolve

import (
	"fmt"

	"github.com/famomatic/ytcourier/internal/types"
)

// Resolve applies the selection policy, in priority order:
//
//  1. progressive: mp4 with both tracks at height <= target, maximizing height
//  2. merge: best video-only at height <= target paired with best audio-only
//  3. fallback: single highest-height encoding regardless of container/audio
//
// Among equal heights, mp4 wins, then the larger approximate size.
func Resolve(encodings []types.EncodingDescriptor, q types.Quality) (types.FormatSelection, error) {
	if len(encodings) == 0 {
		return types.FormatSelection{}, fmt.Errorf("%w: upstream offered no encodings", types.ErrNoMatchingFormat)
	}
	target := q.Height()

	if prog, ok := pickBest(encodings, func(e types.EncodingDescriptor) bool {
		return e.HasVideo && e.HasAudio && e.Container == "mp4" && e.Height <= target
	}); ok {
		return types.FormatSelection{
			Strategy:      types.StrategyProgressive,
			VideoFormatID: prog.FormatID,
		}, nil
	}

	video, hasVideo := pickBest(encodings, func(e types.EncodingDescriptor) bool {
		return e.HasVideo && !e.HasAudio && e.Height <= target
	})
	audio, hasAudio := pickBest(encodings, func(e types.EncodingDescriptor) bool {
		return e.HasAudio && !e.HasVideo
	})
	if hasVideo && hasAudio {
		return types.FormatSelection{
			Strategy:      types.StrategyMerge,
			VideoFormatID: video.FormatID,
			AudioFormatID: audio.FormatID,
		}, nil
	}

	best, ok := pickBest(encodings, func(types.EncodingDescriptor) bool { return true })
	if !ok {
		return types.FormatSelection{}, types.ErrNoMatchingFormat
	}
	return types.FormatSelection{
		Strategy:      types.StrategyFallback,
		VideoFormatID: best.FormatID,
	}, nil
}

func pickBest(encodings []types.EncodingDescriptor, match func(types.EncodingDescriptor) bool) (types.EncodingDescriptor, bool) {
	var best types.EncodingDescriptor
	found := false
	for _, e := range encodings {
		if !match(e) {
			continue
		}
		if !found || better(e, best) {
			best = e
			found = true
		}
	}
	return best, found
}

func better(a, b types.EncodingDescriptor) bool {
	return compareKeys(
		[]int64{int64(a.Height), containerScore(a.Container), a.ApproxSizeBytes},
		[]int64{int64(b.Height), containerScore(b.Container), b.ApproxSizeBytes},
	)
}

func compareKeys(a, b []int64) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		return a[i] > b[i]
	}
	return false
}

func containerScore(container string) int64 {
	if container == "mp4" {
		return 1
	}
	return 0
}
