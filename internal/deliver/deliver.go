// Package deliver decides how a validated artifact reaches the requester.
//
// Rejections here are policy outcomes, not failures: the pipeline worked and
// the input simply violates a limit. Callers act on the returned channel and
// must release scratch storage afterward on every path.
package deliver

import (
	"fmt"

	"github.com/famomatic/ytcourier/internal/types"
)

const (
	// DefaultMaxDurationSeconds rejects videos longer than 20 minutes.
	DefaultMaxDurationSeconds = 1200
	// DefaultMaxAttachmentBytes is the largest payload sent inline (25 MiB).
	DefaultMaxAttachmentBytes = 25 << 20
	// DefaultMaxStorageBytes is the largest payload uploaded to shared
	// storage (50 MiB); anything bigger is rejected.
	DefaultMaxStorageBytes = 50 << 20
)

// Limits tunes the delivery gates. The zero value picks the defaults.
type Limits struct {
	MaxDurationSeconds int64
	MaxAttachmentBytes int64
	MaxStorageBytes    int64
}

func (l Limits) normalized() Limits {
	if l.MaxDurationSeconds <= 0 {
		l.MaxDurationSeconds = DefaultMaxDurationSeconds
	}
	if l.MaxAttachmentBytes <= 0 {
		l.MaxAttachmentBytes = DefaultMaxAttachmentBytes
	}
	if l.MaxStorageBytes <= 0 {
		l.MaxStorageBytes = DefaultMaxStorageBytes
	}
	return l
}

// CheckDuration applies the duration gate. It needs only metadata, so the
// pipeline runs it before any download work is spent.
func CheckDuration(meta *types.VideoMetadata, limits Limits) *types.DeliveryDecision {
	limits = limits.normalized()
	if meta.DurationSeconds > limits.MaxDurationSeconds {
		return &types.DeliveryDecision{
			Channel: types.ChannelReject,
			Reason: fmt.Sprintf("too long (%s exceeds the %s limit)",
				formatDuration(meta.DurationSeconds), formatDuration(limits.MaxDurationSeconds)),
		}
	}
	return nil
}

// Route applies the size gates to a validated artifact and picks the channel.
func Route(artifact *types.MediaArtifact, limits Limits) types.DeliveryDecision {
	limits = limits.normalized()
	switch {
	case artifact.SizeBytes <= limits.MaxAttachmentBytes:
		return types.DeliveryDecision{Channel: types.ChannelAttach}
	case artifact.SizeBytes <= limits.MaxStorageBytes:
		return types.DeliveryDecision{Channel: types.ChannelSharedLink}
	default:
		return types.DeliveryDecision{
			Channel: types.ChannelReject,
			Reason: fmt.Sprintf("too large (%.1f MiB exceeds the %.0f MiB limit)",
				float64(artifact.SizeBytes)/(1<<20), float64(limits.MaxStorageBytes)/(1<<20)),
		}
	}
}

func formatDuration(seconds int64) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
