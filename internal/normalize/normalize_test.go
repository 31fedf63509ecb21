package normalize

import (
	"regexp"
	"strings"
	"testing"
)

func TestExtract_DeduplicatesAcrossURLForms(t *testing.T) {
	body := `Check this out: https://www.youtube.com/watch?v=dQw4w9WgXcQ
and the short link https://youtu.be/dQw4w9WgXcQ plus
<iframe src="https://www.youtube.com/embed/dQw4w9WgXcQ"></iframe>`

	got := Extract(body)
	if len(got) != 1 {
		t.Fatalf("Extract() returned %d urls, want 1: %v", len(got), got)
	}
	if got[0] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("Extract() = %q, want canonical watch url", got[0])
	}
}

func TestExtract_OrderedByFirstOccurrence(t *testing.T) {
	body := `second form first: https://youtu.be/aaaaaaaaaaa
then https://www.youtube.com/watch?v=bbbbbbbbbbb
then https://youtu.be/aaaaaaaaaaa again`

	got := Extract(body)
	want := []string{
		"https://www.youtube.com/watch?v=aaaaaaaaaaa",
		"https://www.youtube.com/watch?v=bbbbbbbbbbb",
	}
	if len(got) != len(want) {
		t.Fatalf("Extract() returned %d urls, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Extract()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtract_StripsMarkup(t *testing.T) {
	body := `<div><a href="https://www.youtube.com/watch?v=dQw4w9WgXcQ">watch</a></div>`
	got := Extract(body)
	if len(got) != 1 {
		t.Fatalf("Extract() returned %d urls, want 1", len(got))
	}
}

func TestExtract_MalformedAndEmptyInput(t *testing.T) {
	cases := []string{
		"",
		"   \n\t ",
		"no urls here",
		"https://www.youtube.com/watch?v=short",   // id too short
		"https://example.com/watch?v=dQw4w9WgXcQ", // wrong host
		"<<<<>>>> &&& \x00 garbage",
	}
	for _, in := range cases {
		if got := Extract(in); len(got) != 0 {
			t.Fatalf("Extract(%q) = %v, want empty", in, got)
		}
	}
}

func TestExtract_AllIDsMatchPattern(t *testing.T) {
	idRe := regexp.MustCompile(`v=([0-9A-Za-z_-]{11})$`)
	body := `https://youtu.be/x_Y-9zZ0aB1 text https://www.youtube.com/watch?v=0123456789_
https://www.youtube.com/embed/abcdefghijk`
	got := Extract(body)
	if len(got) != 3 {
		t.Fatalf("Extract() returned %d urls, want 3: %v", len(got), got)
	}
	seen := map[string]bool{}
	for _, u := range got {
		m := idRe.FindStringSubmatch(u)
		if m == nil {
			t.Fatalf("url %q does not end in an 11-char id", u)
		}
		if seen[m[1]] {
			t.Fatalf("duplicate id %q in result", m[1])
		}
		seen[m[1]] = true
		if !strings.HasPrefix(u, "https://www.youtube.com/watch?v=") {
			t.Fatalf("url %q is not canonical", u)
		}
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"", "", true},
		{"not a url", "", true},
		{"https://example.com/video/123", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractVideoID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ExtractVideoID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ExtractVideoID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
