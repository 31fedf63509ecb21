package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	youtube "github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/famomatic/ytcourier/internal/locate"
	"github.com/famomatic/ytcourier/internal/muxer"
	"github.com/famomatic/ytcourier/internal/types"
)

// DefaultFetchTimeout bounds a single probe or fetch attempt.
const DefaultFetchTimeout = 30 * time.Second

// YouTube is the in-process extraction engine adapter.
type YouTube struct {
	httpClient *http.Client
	fs         afero.Fs
	muxer      muxer.Muxer
	timeout    time.Duration
	logger     logrus.FieldLogger
}

// NewYouTube builds the adapter. httpClient nil means http.DefaultClient,
// fs nil means the OS filesystem, timeout zero means DefaultFetchTimeout.
func NewYouTube(httpClient *http.Client, fs afero.Fs, m muxer.Muxer, timeout time.Duration, logger logrus.FieldLogger) *YouTube {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &YouTube{httpClient: httpClient, fs: fs, muxer: m, timeout: timeout, logger: logger}
}

// Probe implements Engine.
func (y *YouTube) Probe(ctx context.Context, url string) (*types.VideoMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	client := y.newClient("")
	v, err := client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, classifyYouTubeError(err)
	}
	return toMetadata(v), nil
}

// Fetch implements Engine. Merge selections download both tracks and invoke
// the muxer; everything else downloads a single file.
func (y *YouTube) Fetch(ctx context.Context, req FetchRequest) error {
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	client := y.newClient(req.UserAgent)
	v, err := client.GetVideoContext(ctx, req.URL)
	if err != nil {
		return classifyYouTubeError(err)
	}

	base := locate.SafeBaseName(v.Title)

	if req.Selection.Strategy == types.StrategyMerge {
		if y.muxer == nil || !y.muxer.Available() {
			return &types.UpstreamError{
				Class:   types.ClassPermanent,
				Message: "merge selection requires a muxer",
			}
		}
		videoPath := filepath.Join(req.ScratchDir, base+".fvideo.mp4")
		audioPath := filepath.Join(req.ScratchDir, base+".faudio.m4a")
		if err := y.downloadFormat(ctx, &client, v, req.Selection.VideoFormatID, videoPath); err != nil {
			return err
		}
		if err := y.downloadFormat(ctx, &client, v, req.Selection.AudioFormatID, audioPath); err != nil {
			return err
		}
		outPath := filepath.Join(req.ScratchDir, base+".mp4")
		if err := y.muxer.Merge(ctx, videoPath, audioPath, outPath, muxer.Metadata{
			Title:  v.Title,
			Author: v.Author,
		}); err != nil {
			return &types.UpstreamError{
				Class:   types.ClassPermanent,
				Message: fmt.Sprintf("merge failed: %v", err),
				Err:     err,
			}
		}
		return nil
	}

	format := findFormatByItag(v.Formats, req.Selection.VideoFormatID)
	if format == nil {
		return &types.UpstreamError{
			Class:   types.ClassPermanent,
			Message: fmt.Sprintf("format %d not offered", req.Selection.VideoFormatID),
			Err:     types.ErrNoMatchingFormat,
		}
	}
	ext := containerOf(format.MimeType)
	if ext == "" {
		ext = "mp4"
	}
	return y.downloadFormat(ctx, &client, v, req.Selection.VideoFormatID, filepath.Join(req.ScratchDir, base+"."+ext))
}

// findFormatByItag returns the format with the given itag, or nil if the
// video does not offer it.
func findFormatByItag(list youtube.FormatList, itag int) *youtube.Format {
	matches := list.Itag(itag)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

func (y *YouTube) downloadFormat(ctx context.Context, client *youtube.Client, v *youtube.Video, formatID int, outPath string) error {
	format := findFormatByItag(v.Formats, formatID)
	if format == nil {
		return &types.UpstreamError{
			Class:   types.ClassPermanent,
			Message: fmt.Sprintf("format %d not offered", formatID),
			Err:     types.ErrNoMatchingFormat,
		}
	}

	stream, _, err := client.GetStreamContext(ctx, v, format)
	if err != nil {
		return classifyYouTubeError(err)
	}
	defer stream.Close()

	out, err := y.fs.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	n, err := io.Copy(out, stream)
	if err != nil {
		return classifyYouTubeError(err)
	}
	if y.logger != nil {
		y.logger.WithFields(logrus.Fields{
			"video_id": v.ID,
			"format":   formatID,
			"bytes":    n,
		}).Debug("format downloaded")
	}
	return nil
}

// newClient builds a per-attempt upstream client, optionally rotating the
// outbound identity.
func (y *YouTube) newClient(userAgent string) youtube.Client {
	hc := y.httpClient
	if userAgent != "" {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc = &http.Client{
			Transport:     &identityTransport{base: base, userAgent: userAgent},
			CheckRedirect: y.httpClient.CheckRedirect,
			Jar:           y.httpClient.Jar,
			Timeout:       y.httpClient.Timeout,
		}
	}
	return youtube.Client{HTTPClient: hc}
}

type identityTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *identityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(clone)
}

func toMetadata(v *youtube.Video) *types.VideoMetadata {
	encodings := make([]types.EncodingDescriptor, 0, len(v.Formats))
	for _, f := range v.Formats {
		mediaType := strings.ToLower(f.MimeType)
		if mt, _, err := mime.ParseMediaType(f.MimeType); err == nil {
			mediaType = mt
		}
		encodings = append(encodings, types.EncodingDescriptor{
			FormatID:        f.ItagNo,
			Container:       containerOf(f.MimeType),
			Height:          f.Height,
			HasVideo:        strings.HasPrefix(mediaType, "video/"),
			HasAudio:        f.AudioChannels > 0 || strings.HasPrefix(mediaType, "audio/"),
			ApproxSizeBytes: f.ContentLength,
		})
	}

	thumbnail := ""
	var best uint
	for _, t := range v.Thumbnails {
		if t.URL != "" && t.Width >= best {
			best = t.Width
			thumbnail = t.URL
		}
	}

	return &types.VideoMetadata{
		ID:              v.ID,
		Title:           v.Title,
		Author:          v.Author,
		DurationSeconds: int64(v.Duration / time.Second),
		ThumbnailURL:    thumbnail,
		Encodings:       encodings,
	}
}

func containerOf(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	parts := strings.SplitN(mediaType, "/", 2)
	if len(parts) != 2 {
		return ""
	}
	sub := strings.ToLower(parts[1])
	if sub == "x-matroska" {
		return "mkv"
	}
	return sub
}

// classifyYouTubeError maps kkdai/youtube failures onto the retry taxonomy.
func classifyYouTubeError(err error) error {
	if err == nil {
		return nil
	}

	var psVal youtube.ErrPlayabiltyStatus
	var psPtr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &psVal) || errors.As(err, &psPtr) {
		reason := psVal.Reason
		if psPtr != nil {
			reason = psPtr.Reason
		}
		low := strings.ToLower(reason)
		if strings.Contains(low, "bot") || strings.Contains(low, "sign in") {
			return &types.UpstreamError{Class: types.ClassTransientBlock, Message: reason, Err: err}
		}
		return &types.UpstreamError{Class: types.ClassPermanent, Message: reason, Err: err}
	}

	var statusErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		return &types.UpstreamError{
			Class:   classifyHTTPStatus(int(statusErr)),
			Message: err.Error(),
			Err:     err,
		}
	}

	return classifyMessage(err)
}
