package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/famomatic/ytcourier/internal/envelope"
	"github.com/famomatic/ytcourier/internal/locate"
	"github.com/famomatic/ytcourier/internal/types"
)

// Remote drives an extraction API over HTTP. The download endpoint may reply
// with raw video bytes or with a mail-style multipart envelope; the envelope
// variant is decoded before the artifact lands in scratch storage.
type Remote struct {
	baseURL    string
	httpClient *http.Client
	fs         afero.Fs
	timeout    time.Duration
	logger     logrus.FieldLogger
}

// NewRemote builds a remote engine for the API rooted at baseURL.
func NewRemote(baseURL string, httpClient *http.Client, fs afero.Fs, timeout time.Duration, logger logrus.FieldLogger) *Remote {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Remote{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		fs:         fs,
		timeout:    timeout,
		logger:     logger,
	}
}

type remoteInfo struct {
	Success         bool    `json:"success"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	DurationSeconds int64   `json:"durationSeconds"`
	ThumbnailURL    string  `json:"thumbnailUrl"`
	Error           string  `json:"error"`
	AvailableFormats []struct {
		Resolution string  `json:"resolution"`
		SizeMB     float64 `json:"size_mb"`
	} `json:"availableFormats"`
}

// Probe implements Engine via GET /info.
//
// The remote API performs its own format resolution server-side, so the
// descriptors synthesized here only mirror what it advertises (progressive
// mp4 per listed resolution); they keep the local pipeline uniform.
func (r *Remote) Probe(ctx context.Context, videoURL string) (*types.VideoMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.baseURL+"/info?url="+url.QueryEscape(videoURL), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, classifyMessage(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, classifyMessage(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &types.UpstreamError{
			Class:   classifyHTTPStatus(resp.StatusCode),
			Message: fmt.Sprintf("info http %d: %s", resp.StatusCode, snippet(body)),
		}
	}

	var info remoteInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &types.UpstreamError{Class: types.ClassTransientBlock, Message: "malformed info response", Err: err}
	}
	if !info.Success {
		msg := info.Error
		if msg == "" {
			msg = "remote reported failure"
		}
		return nil, &types.UpstreamError{Class: types.ClassPermanent, Message: msg}
	}

	encodings := make([]types.EncodingDescriptor, 0, len(info.AvailableFormats)+1)
	for i, f := range info.AvailableFormats {
		q, err := types.ParseQuality(f.Resolution)
		if err != nil {
			continue
		}
		encodings = append(encodings, types.EncodingDescriptor{
			FormatID:        i + 1,
			Container:       "mp4",
			Height:          q.Height(),
			HasVideo:        true,
			HasAudio:        true,
			ApproxSizeBytes: int64(f.SizeMB * (1 << 20)),
		})
	}
	if len(encodings) == 0 {
		encodings = append(encodings, types.EncodingDescriptor{
			FormatID:  1,
			Container: "mp4",
			Height:    types.Quality360p.Height(),
			HasVideo:  true,
			HasAudio:  true,
		})
	}

	return &types.VideoMetadata{
		ID:              remoteID(videoURL),
		Title:           info.Title,
		Author:          info.Author,
		DurationSeconds: info.DurationSeconds,
		ThumbnailURL:    info.ThumbnailURL,
		Encodings:       encodings,
	}, nil
}

// Fetch implements Engine via POST /download.
func (r *Remote) Fetch(ctx context.Context, fetchReq FetchRequest) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	quality := fetchReq.Quality
	if quality == "" {
		quality = types.Quality360p
	}
	payload, err := json.Marshal(map[string]string{
		"url":        fetchReq.URL,
		"resolution": string(quality),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/download", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if fetchReq.UserAgent != "" {
		req.Header.Set("User-Agent", fetchReq.UserAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return classifyMessage(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &types.UpstreamError{
			Class:   classifyHTTPStatus(resp.StatusCode),
			Message: fmt.Sprintf("download http %d: %s", resp.StatusCode, snippet(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyMessage(err)
	}

	contentType := resp.Header.Get("Content-Type")
	if isEnvelope(contentType, body) {
		att, err := envelope.Decode(body, "video.mp4")
		if err != nil {
			return &types.UpstreamError{Class: types.ClassTransientBlock, Message: err.Error(), Err: err}
		}
		name := locate.SafeBaseName(strings.TrimSuffix(att.Filename, filepath.Ext(att.Filename)))
		ext := filepath.Ext(att.Filename)
		if ext == "" {
			ext = ".mp4"
		}
		return afero.WriteFile(r.fs, filepath.Join(fetchReq.ScratchDir, name+ext), att.Data, 0o644)
	}

	name := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = "video.mp4"
	}
	return afero.WriteFile(r.fs, filepath.Join(fetchReq.ScratchDir, name), body, 0o644)
}

func isEnvelope(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "multipart/") || strings.Contains(ct, "message/") {
		return true
	}
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToUpper(head), []byte("MIME-VERSION:"))
}

func filenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	const marker = `filename="`
	idx := strings.Index(disposition, marker)
	if idx < 0 {
		return ""
	}
	rest := disposition[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return locate.SafeBaseName(strings.TrimSuffix(rest[:end], filepath.Ext(rest[:end]))) + filepath.Ext(rest[:end])
}

func remoteID(videoURL string) string {
	u, err := url.Parse(videoURL)
	if err != nil {
		return videoURL
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	return strings.Trim(u.Path, "/")
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
