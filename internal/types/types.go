package types

import (
	"fmt"
	"strings"
)

// Quality is the requester-facing target quality for a video.
type Quality string

const (
	Quality360p Quality = "360p"
	Quality480p Quality = "480p"
	Quality720p Quality = "720p"
)

// ParseQuality normalizes a resolution string such as "360p" or "720P".
func ParseQuality(s string) (Quality, error) {
	switch Quality(strings.ToLower(strings.TrimSpace(s))) {
	case Quality360p:
		return Quality360p, nil
	case Quality480p:
		return Quality480p, nil
	case Quality720p:
		return Quality720p, nil
	}
	return "", fmt.Errorf("%w: unsupported resolution %q", ErrInvalidInput, s)
}

// Height returns the pixel height the quality maps to.
func (q Quality) Height() int {
	switch q {
	case Quality480p:
		return 480
	case Quality720p:
		return 720
	default:
		return 360
	}
}

// VideoRequest describes one inbound acquisition job. Immutable once created.
type VideoRequest struct {
	RequestID string
	SourceURL string
	Quality   Quality
	// Requester is the identity that receives the terminal notification
	// and, for shared-link delivery, visibility on the uploaded object.
	Requester string
}

// EncodingDescriptor is one encoding offered by the upstream extraction engine.
type EncodingDescriptor struct {
	FormatID        int
	Container       string
	Height          int
	HasVideo        bool
	HasAudio        bool
	ApproxSizeBytes int64
}

// VideoMetadata is fetched once per request and read-only afterward.
type VideoMetadata struct {
	ID              string
	Title           string
	Author          string
	DurationSeconds int64
	ThumbnailURL    string
	Encodings       []EncodingDescriptor
}

// SelectionStrategy tags how the chosen encoding(s) should be retrieved.
type SelectionStrategy string

const (
	StrategyProgressive SelectionStrategy = "progressive"
	StrategyMerge       SelectionStrategy = "merge"
	StrategyFallback    SelectionStrategy = "fallback"
)

// FormatSelection is the resolver output: a single progressive/fallback
// format, or a video+audio pair to be merged.
type FormatSelection struct {
	Strategy      SelectionStrategy
	VideoFormatID int
	AudioFormatID int // set only for StrategyMerge
}

// FormatIDs lists the upstream formats the selection will fetch.
func (s FormatSelection) FormatIDs() []int {
	if s.Strategy == StrategyMerge {
		return []int{s.VideoFormatID, s.AudioFormatID}
	}
	return []int{s.VideoFormatID}
}

// MediaArtifact is the validated media file produced by one pipeline run.
// It lives inside that run's scratch storage and never outlives the request.
type MediaArtifact struct {
	Path      string
	SizeBytes int64
	Container string
}

// DeliveryChannel is the terminal routing decision for an artifact.
type DeliveryChannel string

const (
	ChannelAttach     DeliveryChannel = "attach"
	ChannelSharedLink DeliveryChannel = "sharedLink"
	ChannelReject     DeliveryChannel = "reject"
)

// DeliveryDecision is the single terminal decision for a VideoRequest.
// A reject decision means the pipeline worked and the input violates policy;
// it is distinct from a failure.
type DeliveryDecision struct {
	Channel DeliveryChannel
	Reason  string
}
