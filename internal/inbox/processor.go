package inbox

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/famomatic/ytcourier/courier"
	"github.com/famomatic/ytcourier/internal/dedupe"
	"github.com/famomatic/ytcourier/internal/mailer"
	"github.com/famomatic/ytcourier/internal/normalize"
	"github.com/famomatic/ytcourier/internal/storage"
	"github.com/famomatic/ytcourier/internal/types"
)

const (
	// DefaultQuery matches the subject convention requesters use.
	DefaultQuery = `subject:"yt" -in:trash`
	// DefaultLabel marks threads that have been handled.
	DefaultLabel = "yt-processed"
)

// ProcessorConfig wires the inbox run.
type ProcessorConfig struct {
	Client   Client
	Pipeline *courier.Pipeline
	Dedupe   dedupe.Store
	Mailer   mailer.Sender
	Storage  storage.Store

	// Query and Label default to DefaultQuery and DefaultLabel.
	Query string
	Label string

	// Quality is the target for every inbox request.
	Quality types.Quality

	// AdminEmail receives the batch summary and crash alerts.
	// Empty disables both.
	AdminEmail string

	Logger logrus.FieldLogger
}

// Summary tallies one inbox run.
type Summary struct {
	Processed int
	Delivered int
	Skipped   int
	Failed    int
}

// Processor runs the acquisition pipeline for every video URL found in
// matching mail threads and replies to each requester.
type Processor struct {
	cfg ProcessorConfig
}

// NewProcessor validates the wiring and builds a processor.
func NewProcessor(cfg ProcessorConfig) (*Processor, error) {
	if cfg.Client == nil || cfg.Pipeline == nil || cfg.Dedupe == nil || cfg.Mailer == nil {
		return nil, fmt.Errorf("inbox: Client, Pipeline, Dedupe and Mailer are required")
	}
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.Label == "" {
		cfg.Label = DefaultLabel
	}
	if cfg.Quality == "" {
		cfg.Quality = types.Quality360p
	}
	return &Processor{cfg: cfg}, nil
}

// Run scans once and processes every new request to a terminal state.
// Each processed URL produces exactly one reply to its requester.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	threads, err := p.cfg.Client.Search(ctx, p.cfg.Query)
	if err != nil {
		p.alertAdmin(ctx, "inbox scan failed", courier.Summarize(err))
		return Summary{}, fmt.Errorf("search inbox: %w", err)
	}

	var summary Summary
	var outcomes []mailer.Outcome

	for _, thread := range threads {
		labeled, err := p.cfg.Client.HasLabel(ctx, thread.ID, p.cfg.Label)
		if err != nil {
			p.log().WithError(err).WithField("thread", thread.ID).Warn("label check failed")
			continue
		}
		if labeled {
			continue
		}

		threadHadURLs := false
		for _, msg := range thread.Messages {
			for _, url := range normalize.Extract(msg.Body) {
				threadHadURLs = true

				fresh, err := p.cfg.Dedupe.MarkIfNew(ctx, dedupe.Fingerprint(msg.ID, url))
				if err != nil {
					p.log().WithError(err).Warn("dedupe check failed")
					continue
				}
				if !fresh {
					continue
				}

				outcome := p.processURL(ctx, msg, url)
				outcomes = append(outcomes, outcome)
				summary.Processed++
				switch {
				case outcome.Failed:
					summary.Failed++
				case outcome.Channel == types.ChannelReject:
					summary.Skipped++
				default:
					summary.Delivered++
				}
			}
		}

		if threadHadURLs {
			if err := p.cfg.Client.AddLabel(ctx, thread.ID, p.cfg.Label); err != nil {
				p.log().WithError(err).WithField("thread", thread.ID).Warn("labeling failed")
			}
		}
	}

	if len(outcomes) > 0 && p.cfg.AdminEmail != "" {
		subject, body := mailer.ComposeSummary(outcomes)
		if err := p.cfg.Mailer.Send(ctx, mailer.Message{
			Recipient: p.cfg.AdminEmail,
			Subject:   subject,
			HTMLBody:  body,
		}); err != nil {
			p.log().WithError(err).Warn("summary send failed")
		}
	}

	return summary, nil
}

// processURL runs one URL to its terminal state and sends the single reply.
func (p *Processor) processURL(ctx context.Context, msg Message, url string) mailer.Outcome {
	requester := SenderAddress(msg.From)
	subject := "Re: " + msg.Subject

	res, err := p.cfg.Pipeline.Run(ctx, types.VideoRequest{
		SourceURL: url,
		Quality:   p.cfg.Quality,
		Requester: requester,
	})
	if err != nil {
		outcome := mailer.Outcome{URL: url, Failed: true, Reason: courier.Summarize(err)}
		p.reply(ctx, requester, subject, outcome, nil)
		return outcome
	}

	outcome := mailer.Outcome{
		URL:      url,
		Title:    res.Metadata.Title,
		Author:   res.Metadata.Author,
		Duration: courier.FormatDuration(res.Metadata.DurationSeconds),
		Thumb:    res.Metadata.ThumbnailURL,
		Channel:  res.Decision.Channel,
		Reason:   res.Decision.Reason,
		SizeMB:   float64(len(res.Payload)) / (1 << 20),
	}

	switch res.Decision.Channel {
	case types.ChannelAttach:
		p.reply(ctx, requester, subject, outcome, &mailer.Attachment{
			Filename:    res.Filename,
			ContentType: "video/mp4",
			Data:        res.Payload,
		})
	case types.ChannelSharedLink:
		obj, err := p.upload(ctx, requester, res)
		if err != nil {
			outcome.Failed = true
			outcome.Channel = ""
			outcome.Reason = courier.Summarize(err)
			p.reply(ctx, requester, subject, outcome, nil)
			return outcome
		}
		outcome.LinkURL = obj.URL
		p.reply(ctx, requester, subject, outcome, nil)
	default:
		p.reply(ctx, requester, subject, outcome, nil)
	}
	return outcome
}

func (p *Processor) upload(ctx context.Context, requester string, res *courier.Result) (storage.Object, error) {
	if p.cfg.Storage == nil {
		return storage.Object{}, fmt.Errorf("no shared storage configured")
	}
	obj, err := p.cfg.Storage.Upload(ctx, res.Filename, res.Payload)
	if err != nil {
		return storage.Object{}, fmt.Errorf("upload artifact: %w", err)
	}
	if err := p.cfg.Storage.RestrictVisibility(ctx, obj.ID, requester); err != nil {
		return storage.Object{}, fmt.Errorf("restrict visibility: %w", err)
	}
	return obj, nil
}

func (p *Processor) reply(ctx context.Context, recipient, subject string, outcome mailer.Outcome, att *mailer.Attachment) {
	err := p.cfg.Mailer.Send(ctx, mailer.Message{
		Recipient:  recipient,
		Subject:    subject,
		HTMLBody:   mailer.ComposeResult(outcome),
		Attachment: att,
	})
	if err != nil {
		p.log().WithError(err).WithField("recipient", recipient).Error("reply send failed")
	}
}

func (p *Processor) alertAdmin(ctx context.Context, subject, detail string) {
	if p.cfg.AdminEmail == "" {
		return
	}
	err := p.cfg.Mailer.Send(ctx, mailer.Message{
		Recipient: p.cfg.AdminEmail,
		Subject:   "ALERT: " + subject,
		HTMLBody:  "<p>" + detail + "</p>",
	})
	if err != nil {
		p.log().WithError(err).Error("admin alert send failed")
	}
}

func (p *Processor) log() logrus.FieldLogger {
	if p.cfg.Logger != nil {
		return p.cfg.Logger
	}
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}
