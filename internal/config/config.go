// Package config loads service settings from the environment.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/famomatic/ytcourier/internal/types"
)

// Enumerated environment keys.
const (
	KeyMaxDurationSeconds    = "MAX_DURATION_SECONDS"
	KeyMaxAttachmentBytes    = "MAX_ATTACHMENT_BYTES"
	KeyMaxStorageBytes       = "MAX_STORAGE_BYTES"
	KeyDefaultResolution     = "DEFAULT_RESOLUTION"
	KeyDownloadRetries       = "DOWNLOAD_RETRIES"
	KeyRetryBaseDelaySeconds = "RETRY_BASE_DELAY_SECONDS"
	KeyTransientBaseSeconds  = "TRANSIENT_BASE_DELAY_SECONDS"
	KeyFetchTimeoutSeconds   = "FETCH_TIMEOUT_SECONDS"
	KeyMinArtifactBytes      = "MIN_ARTIFACT_BYTES"
	KeyPort                  = "PORT"
	KeyScratchDir            = "SCRATCH_DIR"
	KeyS3Bucket              = "S3_BUCKET"
	KeyDedupeDBPath          = "DEDUPE_DB_PATH"
	KeyFFmpegPath            = "FFMPEG_PATH"
	KeyAllowedOrigins        = "ALLOWED_ORIGINS"
	KeyUserAgents            = "USER_AGENTS"
	KeyInboxQuery            = "INBOX_QUERY"
	KeyProcessedLabel        = "PROCESSED_LABEL"
	KeyAdminEmail            = "ADMIN_EMAIL"
	KeyLogLevel              = "LOG_LEVEL"
)

// Settings is the resolved service configuration.
type Settings struct {
	MaxDurationSeconds int64
	MaxAttachmentBytes int64
	MaxStorageBytes    int64
	DefaultResolution  types.Quality
	DownloadRetries    int
	RetryBaseDelay     time.Duration
	TransientBaseDelay time.Duration
	FetchTimeout       time.Duration
	MinArtifactBytes   int64
	Port               string
	ScratchDir         string
	S3Bucket           string
	DedupeDBPath       string
	FFmpegPath         string
	AllowedOrigins     []string
	UserAgents         []string
	InboxQuery         string
	ProcessedLabel     string
	AdminEmail         string
	LogLevel           string
}

// Load binds the enumerated keys to the environment and resolves Settings.
// Unset keys fall back to their documented defaults; a malformed resolution
// falls back to 360p rather than failing startup.
func Load() Settings {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(KeyMaxDurationSeconds, 1200)
	v.SetDefault(KeyMaxAttachmentBytes, 26214400)
	v.SetDefault(KeyMaxStorageBytes, 52428800)
	v.SetDefault(KeyDefaultResolution, "360p")
	v.SetDefault(KeyDownloadRetries, 3)
	v.SetDefault(KeyRetryBaseDelaySeconds, 30)
	v.SetDefault(KeyTransientBaseSeconds, 10)
	v.SetDefault(KeyFetchTimeoutSeconds, 30)
	v.SetDefault(KeyMinArtifactBytes, 1<<20)
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyScratchDir, "")
	v.SetDefault(KeyS3Bucket, "")
	v.SetDefault(KeyDedupeDBPath, "ytcourier.db")
	v.SetDefault(KeyFFmpegPath, "")
	v.SetDefault(KeyAllowedOrigins, "*")
	v.SetDefault(KeyUserAgents, "")
	v.SetDefault(KeyInboxQuery, "")
	v.SetDefault(KeyProcessedLabel, "")
	v.SetDefault(KeyAdminEmail, "")
	v.SetDefault(KeyLogLevel, "info")

	quality, err := types.ParseQuality(v.GetString(KeyDefaultResolution))
	if err != nil {
		quality = types.Quality360p
	}

	return Settings{
		MaxDurationSeconds: v.GetInt64(KeyMaxDurationSeconds),
		MaxAttachmentBytes: v.GetInt64(KeyMaxAttachmentBytes),
		MaxStorageBytes:    v.GetInt64(KeyMaxStorageBytes),
		DefaultResolution:  quality,
		DownloadRetries:    v.GetInt(KeyDownloadRetries),
		RetryBaseDelay:     time.Duration(v.GetInt(KeyRetryBaseDelaySeconds)) * time.Second,
		TransientBaseDelay: time.Duration(v.GetInt(KeyTransientBaseSeconds)) * time.Second,
		FetchTimeout:       time.Duration(v.GetInt(KeyFetchTimeoutSeconds)) * time.Second,
		MinArtifactBytes:   v.GetInt64(KeyMinArtifactBytes),
		Port:               v.GetString(KeyPort),
		ScratchDir:         v.GetString(KeyScratchDir),
		S3Bucket:           v.GetString(KeyS3Bucket),
		DedupeDBPath:       v.GetString(KeyDedupeDBPath),
		FFmpegPath:         v.GetString(KeyFFmpegPath),
		AllowedOrigins:     splitList(v.GetString(KeyAllowedOrigins)),
		UserAgents:         splitList(v.GetString(KeyUserAgents)),
		InboxQuery:         v.GetString(KeyInboxQuery),
		ProcessedLabel:     v.GetString(KeyProcessedLabel),
		AdminEmail:         v.GetString(KeyAdminEmail),
		LogLevel:           v.GetString(KeyLogLevel),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
