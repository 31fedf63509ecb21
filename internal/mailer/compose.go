package mailer

import (
	"fmt"
	"html"
	"strings"

	"github.com/samber/lo"

	"github.com/famomatic/ytcourier/internal/types"
)

// Outcome is the terminal result of one processed URL, used for both the
// per-request notification and the batch summary.
type Outcome struct {
	URL      string
	Title    string
	Channel  types.DeliveryChannel
	Reason   string // rejection reason or summarized failure
	Failed   bool
	LinkURL  string // set for sharedLink delivery
	SizeMB   float64
	Duration string
	Author   string
	Thumb    string
}

// ComposeResult builds the notification body for one terminal state.
func ComposeResult(o Outcome) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial;max-width:600px">`)

	switch {
	case o.Failed:
		fmt.Fprintf(&b, `<h2 style="color:#f44336">Download failed</h2><p>%s</p>`,
			html.EscapeString(o.Reason))
	case o.Channel == types.ChannelReject:
		fmt.Fprintf(&b, `<h2 style="color:#ff9800">Skipped</h2><p>%s</p>`,
			html.EscapeString(o.Reason))
	case o.Channel == types.ChannelAttach:
		fmt.Fprintf(&b, `<h2 style="color:#4caf50">Video attached</h2><p>%s (%.1f MB)</p>`,
			html.EscapeString(o.Title), o.SizeMB)
		b.WriteString(detailBlock(o))
	case o.Channel == types.ChannelSharedLink:
		fmt.Fprintf(&b, `<h2 style="color:#2196f3">Video ready</h2><p>%s (%.1f MB)</p>`,
			html.EscapeString(o.Title), o.SizeMB)
		fmt.Fprintf(&b, `<p><a href="%s">Open video</a></p>`, o.LinkURL)
		b.WriteString(detailBlock(o))
	}

	b.WriteString(`</div>`)
	return b.String()
}

func detailBlock(o Outcome) string {
	var b strings.Builder
	if o.Thumb != "" {
		fmt.Fprintf(&b, `<img src="%s" style="max-width:400px">`, o.Thumb)
	}
	if o.Author != "" || o.Duration != "" {
		fmt.Fprintf(&b, `<p>%s &bull; %s</p>`, html.EscapeString(o.Author), o.Duration)
	}
	return b.String()
}

// ComposeSummary builds the batch summary sent after an inbox run.
func ComposeSummary(outcomes []Outcome) (subject, body string) {
	delivered := lo.Filter(outcomes, func(o Outcome, _ int) bool {
		return !o.Failed && o.Channel != types.ChannelReject
	})
	skipped := lo.Filter(outcomes, func(o Outcome, _ int) bool {
		return !o.Failed && o.Channel == types.ChannelReject
	})
	failed := lo.Filter(outcomes, func(o Outcome, _ int) bool { return o.Failed })

	subject = fmt.Sprintf("Video courier: %d/%d delivered", len(delivered), len(outcomes))

	var b strings.Builder
	fmt.Fprintf(&b, `<h2>Run summary</h2><p>%d delivered, %d skipped, %d failed</p>`,
		len(delivered), len(skipped), len(failed))
	if len(delivered) > 0 {
		b.WriteString(`<h3>Delivered</h3><ul>`)
		for _, o := range delivered {
			fmt.Fprintf(&b, `<li>%s (%s)</li>`, html.EscapeString(o.Title), o.Channel)
		}
		b.WriteString(`</ul>`)
	}
	if len(skipped) > 0 {
		b.WriteString(`<h3>Skipped</h3><ul>`)
		for _, o := range skipped {
			fmt.Fprintf(&b, `<li>%s: %s</li>`, html.EscapeString(o.URL), html.EscapeString(o.Reason))
		}
		b.WriteString(`</ul>`)
	}
	if len(failed) > 0 {
		b.WriteString(`<h3 style="color:#f44336">Failed</h3><ul>`)
		for _, o := range failed {
			fmt.Fprintf(&b, `<li>%s: %s</li>`, html.EscapeString(o.URL), html.EscapeString(o.Reason))
		}
		b.WriteString(`</ul>`)
	}
	return subject, b.String()
}
