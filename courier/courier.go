// Package courier runs the video acquisition pipeline: normalize the URL,
// probe metadata, gate on duration, resolve a format, download with bounded
// retries, locate and validate the artifact, and route it to a delivery
// channel.
//
// A pipeline run owns an isolated scratch directory and reclaims it on every
// exit path; deliverable bytes are returned in memory so no artifact outlives
// its request. Each request produces exactly one terminal DeliveryDecision.
package courier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/famomatic/ytcourier/internal/deliver"
	"github.com/famomatic/ytcourier/internal/engine"
	"github.com/famomatic/ytcourier/internal/executor"
	"github.com/famomatic/ytcourier/internal/locate"
	"github.com/famomatic/ytcourier/internal/normalize"
	"github.com/famomatic/ytcourier/internal/resolve"
	"github.com/famomatic/ytcourier/internal/scratch"
	"github.com/famomatic/ytcourier/internal/types"
)

// Config wires the pipeline's collaborators and policy knobs.
type Config struct {
	// Engine is the upstream extraction collaborator. Required.
	Engine engine.Engine

	// Fs hosts scratch storage. Nil means the OS filesystem.
	Fs afero.Fs

	// ScratchBase is the parent directory for per-request scratch dirs.
	// Empty means the filesystem's default temp location.
	ScratchBase string

	// Limits tunes the delivery gates. Zero values pick the defaults.
	Limits deliver.Limits

	// Retry tunes the download executor. The zero value picks the defaults.
	Retry executor.Config

	// MinArtifactBytes is the output locator's size floor.
	// Zero means locate.DefaultMinSizeBytes.
	MinArtifactBytes int64

	// Logger receives structured progress events. Nil means silent.
	Logger logrus.FieldLogger
}

// Result is the terminal outcome of one pipeline run.
type Result struct {
	Decision  types.DeliveryDecision
	Metadata  *types.VideoMetadata
	Selection types.FormatSelection
	Attempts  []executor.Attempt

	// Payload and Filename are set for attach and sharedLink decisions.
	// The bytes are the whole validated artifact; scratch storage is
	// already reclaimed by the time Run returns.
	Payload  []byte
	Filename string
}

// Pipeline executes VideoRequests end to end.
type Pipeline struct {
	cfg Config
	fs  afero.Fs
}

// New builds a pipeline. Config.Engine must be set.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("courier: Config.Engine is required")
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Pipeline{cfg: cfg, fs: fs}, nil
}

// Info probes metadata for url without downloading. CanDownload reports
// whether the duration gate would pass.
func (p *Pipeline) Info(ctx context.Context, url string) (*types.VideoMetadata, bool, error) {
	id, err := normalize.ExtractVideoID(url)
	if err != nil {
		return nil, false, err
	}
	meta, err := p.cfg.Engine.Probe(ctx, normalize.CanonicalURL(id))
	if err != nil {
		return nil, false, err
	}
	canDownload := deliver.CheckDuration(meta, p.cfg.Limits) == nil
	return meta, canDownload, nil
}

// Run processes one request to its terminal state. A reject decision is a
// successful run; errors mean the pipeline itself failed.
func (p *Pipeline) Run(ctx context.Context, req types.VideoRequest) (*Result, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	log := p.logger().WithField("request_id", req.RequestID)

	id, err := normalize.ExtractVideoID(req.SourceURL)
	if err != nil {
		return nil, err
	}
	url := normalize.CanonicalURL(id)
	log = log.WithField("video_id", id)

	meta, err := p.cfg.Engine.Probe(ctx, url)
	if err != nil {
		return nil, err
	}

	// Duration is known before any download work; gate first.
	if rejection := deliver.CheckDuration(meta, p.cfg.Limits); rejection != nil {
		log.WithField("reason", rejection.Reason).Info("request rejected")
		return &Result{Decision: *rejection, Metadata: meta}, nil
	}

	selection, err := resolve.Resolve(meta.Encodings, req.Quality)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"strategy": selection.Strategy,
		"format":   selection.VideoFormatID,
	}).Debug("format resolved")

	dir, err := scratch.New(p.fs, p.cfg.ScratchBase, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("allocate scratch: %w", err)
	}
	defer dir.Release()

	ex := executor.New(p.cfg.Engine, p.cfg.Retry, p.cfg.Logger)
	attempts, err := ex.Run(ctx, types.VideoRequest{
		RequestID: req.RequestID,
		SourceURL: url,
		Quality:   req.Quality,
		Requester: req.Requester,
	}, selection, dir.Path())
	if err != nil {
		return nil, err
	}

	artifact, err := locate.Locate(dir.Fs(), dir.Path(), meta, locate.Config{
		MinSizeBytes: p.cfg.MinArtifactBytes,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Metadata:  meta,
		Selection: selection,
		Attempts:  attempts,
		Decision:  deliver.Route(artifact, p.cfg.Limits),
	}
	if result.Decision.Channel == types.ChannelReject {
		log.WithField("reason", result.Decision.Reason).Info("artifact rejected")
		return result, nil
	}

	payload, err := afero.ReadFile(dir.Fs(), artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	result.Payload = payload
	result.Filename = AttachmentName(meta.Title, req.Quality, artifact.Container)

	log.WithFields(logrus.Fields{
		"channel": result.Decision.Channel,
		"bytes":   len(payload),
	}).Info("request delivered")
	return result, nil
}

// Summarize flattens a pipeline error into a requester-facing reason.
// Raw traces never reach notifications.
func Summarize(err error) string {
	var ue *types.UpstreamError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ue):
		return "the video service refused the download: " + ue.Message
	default:
		msg := err.Error()
		if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
			msg = msg[:idx]
		}
		return msg
	}
}

// AttachmentName builds the delivered filename: title capped at 50 runes
// with a quality suffix, e.g. "Some Talk [360p].mp4".
func AttachmentName(title string, q types.Quality, container string) string {
	base := locate.SafeBaseName(title)
	runes := []rune(base)
	if len(runes) > 50 {
		base = strings.TrimSpace(string(runes[:50]))
	}
	if container == "" {
		container = "mp4"
	}
	return fmt.Sprintf("%s [%s].%s", base, q, container)
}

// FormatDuration renders seconds as m:ss for notifications.
func FormatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), seconds%60)
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.cfg.Logger != nil {
		return p.cfg.Logger
	}
	l := logrus.New()
	l.SetOutput(nopWriter{})
	return l
}

type nopWriter struct{}

func (nopWriter) Write(b []byte) (int, error) { return len(b), nil }
