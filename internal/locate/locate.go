// Package locate finds the produced media file among scratch artifacts.
//
// Extraction engines can leave manifests, thumbnails or captured-page
// snapshots alongside (or instead of) the real video when upstream blocks
// occur. The locator treats the scratch directory as a write-once bag of
// candidates and applies deterministic scoring plus validation instead of
// trusting filenames.
package locate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/afero"

	"github.com/famomatic/ytcourier/internal/types"
)

// DefaultMinSizeBytes guards against thumbnail/subtitle/manifest leftovers.
const DefaultMinSizeBytes = 1 << 20 // 1 MiB

var videoExtensions = map[string]string{
	".mp4":  "mp4",
	".mkv":  "mkv",
	".webm": "webm",
}

// RejectionError reports which validation step rejected a candidate.
type RejectionError struct {
	Path string
	Step string // "size-floor", "markup", "signature"
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("candidate %s rejected at %s", filepath.Base(e.Path), e.Step)
}

// Config tunes the locator.
type Config struct {
	// MinSizeBytes is the size floor; zero means DefaultMinSizeBytes.
	MinSizeBytes int64
}

func (c Config) minSize() int64 {
	if c.MinSizeBytes > 0 {
		return c.MinSizeBytes
	}
	return DefaultMinSizeBytes
}

// Locate returns the single MediaArtifact in dir, or an error.
// Candidates are tried in order: a file whose name contains a normalized
// form of the title, then the largest recognized video file over the size
// floor. Every candidate must pass validation.
func Locate(fs afero.Fs, dir string, meta *types.VideoMetadata, cfg Config) (*types.MediaArtifact, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrOutputNotFound, err)
	}

	type candidate struct {
		info os.FileInfo
		ext  string
	}
	var candidates []candidate
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		container, ok := videoExtensions[ext]
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{info: info, ext: container})
	}
	if len(candidates) == 0 {
		return nil, types.ErrOutputNotFound
	}

	// Largest first so the fallback rule needs no second pass.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].info.Size() > candidates[j].info.Size()
	})

	var rejection *RejectionError

	if meta != nil {
		title := NormalizeTitle(meta.Title)
		if title != "" {
			for _, c := range candidates {
				if !strings.Contains(NormalizeTitle(c.info.Name()), title) {
					continue
				}
				path := filepath.Join(dir, c.info.Name())
				if err := validate(fs, path, c.info.Size(), cfg.minSize()); err != nil {
					var re *RejectionError
					if rejection == nil && asRejection(err, &re) {
						rejection = re
					}
					continue
				}
				return &types.MediaArtifact{Path: path, SizeBytes: c.info.Size(), Container: c.ext}, nil
			}
		}
	}

	for _, c := range candidates {
		if c.info.Size() < cfg.minSize() {
			continue
		}
		path := filepath.Join(dir, c.info.Name())
		if err := validate(fs, path, c.info.Size(), cfg.minSize()); err != nil {
			var re *RejectionError
			if rejection == nil && asRejection(err, &re) {
				rejection = re
			}
			continue
		}
		return &types.MediaArtifact{Path: path, SizeBytes: c.info.Size(), Container: c.ext}, nil
	}

	if rejection != nil {
		return nil, rejection
	}
	return nil, types.ErrOutputNotFound
}

func asRejection(err error, target **RejectionError) bool {
	re, ok := err.(*RejectionError)
	if ok {
		*target = re
	}
	return ok
}

// validate rejects markup/archive-envelope files, sub-floor files and files
// without a recognizable container signature.
func validate(fs afero.Fs, path string, size, minSize int64) error {
	if size < minSize {
		return &RejectionError{Path: path, Step: "size-floor"}
	}

	f, err := fs.Open(path)
	if err != nil {
		return &RejectionError{Path: path, Step: "signature"}
	}
	defer f.Close()

	head := make([]byte, 4096)
	n, _ := f.Read(head)
	head = head[:n]

	if looksLikeMarkup(head) {
		return &RejectionError{Path: path, Step: "markup"}
	}
	if !hasContainerSignature(head) {
		return &RejectionError{Path: path, Step: "signature"}
	}
	return nil
}

func looksLikeMarkup(head []byte) bool {
	trimmed := bytes.TrimLeft(head, " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '<' {
		return true
	}
	upper := bytes.ToUpper(head)
	return bytes.Contains(upper, []byte("MIME-VERSION:")) ||
		bytes.Contains(upper, []byte("<!DOCTYPE")) ||
		bytes.HasPrefix(upper, []byte("FROM:"))
}

// hasContainerSignature recognizes ISO BMFF (mp4) and EBML (webm/mkv) headers.
func hasContainerSignature(head []byte) bool {
	if len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")) {
		return true
	}
	if len(head) >= 4 && bytes.Equal(head[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}) {
		return true
	}
	return false
}

// NormalizeTitle reduces a title to lowercase alphanumerics for matching.
func NormalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SafeBaseName makes a title usable as a scratch file base name: path
// separators replaced, control characters dropped, length capped at 100 runes.
func SafeBaseName(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "video"
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '"':
			b.WriteRune('_')
		case unicode.IsControl(r):
			// drop
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	runes := []rune(out)
	if len(runes) > 100 {
		out = string(runes[:100])
	}
	if strings.TrimSpace(out) == "" {
		return "video"
	}
	return out
}
