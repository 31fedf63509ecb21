package config

import (
	"testing"
	"time"

	"github.com/famomatic/ytcourier/internal/types"
)

func TestLoad_Defaults(t *testing.T) {
	s := Load()

	if s.MaxDurationSeconds != 1200 {
		t.Fatalf("MaxDurationSeconds = %d, want 1200", s.MaxDurationSeconds)
	}
	if s.MaxAttachmentBytes != 26214400 {
		t.Fatalf("MaxAttachmentBytes = %d, want 26214400", s.MaxAttachmentBytes)
	}
	if s.MaxStorageBytes != 52428800 {
		t.Fatalf("MaxStorageBytes = %d, want 52428800", s.MaxStorageBytes)
	}
	if s.DefaultResolution != types.Quality360p {
		t.Fatalf("DefaultResolution = %s, want 360p", s.DefaultResolution)
	}
	if s.DownloadRetries != 3 {
		t.Fatalf("DownloadRetries = %d, want 3", s.DownloadRetries)
	}
	if s.RetryBaseDelay != 30*time.Second || s.TransientBaseDelay != 10*time.Second {
		t.Fatalf("backoff bases = %v/%v, want 30s/10s", s.RetryBaseDelay, s.TransientBaseDelay)
	}
	if s.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", s.Port)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(KeyMaxDurationSeconds, "600")
	t.Setenv(KeyDefaultResolution, "720p")
	t.Setenv(KeyUserAgents, "ua-a, ua-b")

	s := Load()
	if s.MaxDurationSeconds != 600 {
		t.Fatalf("MaxDurationSeconds = %d, want 600", s.MaxDurationSeconds)
	}
	if s.DefaultResolution != types.Quality720p {
		t.Fatalf("DefaultResolution = %s, want 720p", s.DefaultResolution)
	}
	if len(s.UserAgents) != 2 || s.UserAgents[0] != "ua-a" || s.UserAgents[1] != "ua-b" {
		t.Fatalf("UserAgents = %v", s.UserAgents)
	}
}

func TestLoad_BadResolutionFallsBack(t *testing.T) {
	t.Setenv(KeyDefaultResolution, "4320p")
	if s := Load(); s.DefaultResolution != types.Quality360p {
		t.Fatalf("DefaultResolution = %s, want 360p fallback", s.DefaultResolution)
	}
}
