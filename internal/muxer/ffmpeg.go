package muxer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Metadata is embedded into merged output files.
type Metadata struct {
	Title  string
	Author string
}

// Muxer merges separate video and audio tracks into one container.
type Muxer interface {
	Available() bool
	Merge(ctx context.Context, videoPath, audioPath, outputPath string, meta Metadata) error
}

// FFmpegMuxer implements Muxer using the ffmpeg command line tool.
type FFmpegMuxer struct {
	Path string
}

// NewFFmpegMuxer returns a new FFmpegMuxer.
// If path is empty, it looks for "ffmpeg" in PATH.
func NewFFmpegMuxer(path string) *FFmpegMuxer {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegMuxer{Path: path}
}

// Available checks if ffmpeg is executable.
func (f *FFmpegMuxer) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

// Merge stream-copies video and audio into outputPath and deletes the
// intermediate input files on success.
func (f *FFmpegMuxer) Merge(ctx context.Context, videoPath, audioPath, outputPath string, meta Metadata) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c:v", "copy",
		"-c:a", "copy",
	}
	if meta.Title != "" {
		args = append(args, "-metadata", "title="+meta.Title)
	}
	if meta.Author != "" {
		args = append(args, "-metadata", "artist="+meta.Author)
	}
	args = append(args, "-y", outputPath)

	cmd := exec.CommandContext(ctx, f.Path, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg merge failed: %w", err)
	}

	_ = os.Remove(videoPath)
	_ = os.Remove(audioPath)

	return nil
}
