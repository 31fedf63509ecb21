package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/famomatic/ytcourier/internal/types"
)

func TestRemote_ProbeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"title": "Some Video",
			"author": "Some Author",
			"durationSeconds": 300,
			"thumbnailUrl": "https://img.example/t.jpg",
			"availableFormats": [
				{"resolution": "360p", "size_mb": 12.5},
				{"resolution": "720p", "size_mb": 48.0}
			]
		}`))
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, srv.Client(), afero.NewMemMapFs(), time.Second, nil)
	meta, err := r.Probe(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if meta.Title != "Some Video" || meta.DurationSeconds != 300 {
		t.Fatalf("Probe() meta = %+v", meta)
	}
	if meta.ID != "dQw4w9WgXcQ" {
		t.Fatalf("Probe() id = %q", meta.ID)
	}
	if len(meta.Encodings) != 2 {
		t.Fatalf("Probe() encodings = %d, want 2", len(meta.Encodings))
	}
	if meta.Encodings[1].Height != 720 || !meta.Encodings[1].HasAudio {
		t.Fatalf("Probe() encoding = %+v", meta.Encodings[1])
	}
}

func TestRemote_ProbeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "error": "Video unavailable"}`))
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, srv.Client(), afero.NewMemMapFs(), time.Second, nil)
	_, err := r.Probe(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	var ue *types.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("Probe() error = %v, want *UpstreamError", err)
	}
	if ue.Class != types.ClassPermanent {
		t.Fatalf("Probe() class = %s, want permanent", ue.Class)
	}
}

func TestRemote_ProbeRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, srv.Client(), afero.NewMemMapFs(), time.Second, nil)
	_, err := r.Probe(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if types.ClassOf(err) != types.ClassRateLimited {
		t.Fatalf("Probe() class = %s, want rate_limited", types.ClassOf(err))
	}
}

func TestRemote_FetchRawBinary(t *testing.T) {
	payload := append([]byte{0, 0, 0, 24}, []byte("ftypmp42 raw video bytes")...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/download" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="Clip [360p].mp4"`)
		w.Write(payload)
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	r := NewRemote(srv.URL, srv.Client(), fs, time.Second, nil)
	err := r.Fetch(context.Background(), FetchRequest{
		URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Quality:    types.Quality360p,
		ScratchDir: "/scratch",
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	data, err := afero.ReadFile(fs, "/scratch/Clip [360p].mp4")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != string(payload) {
		t.Fatal("Fetch() wrote different bytes than served")
	}
}

func TestRemote_FetchEnvelope(t *testing.T) {
	video := []byte("decoded video payload")
	encoded := base64.StdEncoding.EncodeToString(video)
	doc := "MIME-Version: 1.0\r\n" +
		`Content-Type: multipart/mixed; boundary="PART"` + "\r\n\r\n" +
		"--PART\r\nContent-Type: text/plain\r\n\r\nhello\r\n" +
		"--PART\r\nContent-Type: video/mp4\r\n" +
		`Content-Disposition: attachment; filename="clip.mp4"` + "\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		encoded + "\r\n--PART--\r\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", `multipart/mixed; boundary="PART"`)
		w.Write([]byte(doc))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	r := NewRemote(srv.URL, srv.Client(), fs, time.Second, nil)
	err := r.Fetch(context.Background(), FetchRequest{
		URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Quality:    types.Quality360p,
		ScratchDir: "/scratch",
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	data, err := afero.ReadFile(fs, "/scratch/clip.mp4")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != string(video) {
		t.Fatalf("Fetch() decoded %q, want %q", data, video)
	}
}

func TestRemote_FetchTransientBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "precondition failed", http.StatusPreconditionFailed)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, srv.Client(), afero.NewMemMapFs(), time.Second, nil)
	err := r.Fetch(context.Background(), FetchRequest{
		URL:        "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		ScratchDir: "/scratch",
	})
	if types.ClassOf(err) != types.ClassTransientBlock {
		t.Fatalf("Fetch() class = %s, want transient_block", types.ClassOf(err))
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   types.ErrorClass
	}{
		{429, types.ClassRateLimited},
		{403, types.ClassTransientBlock},
		{412, types.ClassTransientBlock},
		{500, types.ClassTransientBlock},
		{503, types.ClassTransientBlock},
		{400, types.ClassPermanent},
		{404, types.ClassPermanent},
	}
	for _, tt := range tests {
		if got := classifyHTTPStatus(tt.status); got != tt.want {
			t.Fatalf("classifyHTTPStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want types.ErrorClass
	}{
		{"HTTP 429: too many requests", types.ClassRateLimited},
		{"please sign in to continue", types.ClassTransientBlock},
		{"confirm you are not a bot", types.ClassTransientBlock},
		{"video unavailable", types.ClassPermanent},
		{"this video is private", types.ClassPermanent},
		{"connection reset by peer", types.ClassTransientBlock},
	}
	for _, tt := range tests {
		got := classifyMessage(errors.New(tt.msg))
		if got.Class != tt.want {
			t.Fatalf("classifyMessage(%q) = %s, want %s", tt.msg, got.Class, tt.want)
		}
	}
}
