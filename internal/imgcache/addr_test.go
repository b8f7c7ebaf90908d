package imgcache

import (
	"fmt"
	"testing"
)

func TestKeyDeterministic(t *testing.T) {
	k1 := Key("https://example.com/a.png")
	k2 := Key("https://example.com/a.png")
	if k1 != k2 {
		t.Errorf("same URL produced different keys: %s vs %s", k1, k2)
	}
	if len(k1) != 16 {
		t.Errorf("expected 16-char key, got %d chars: %s", len(k1), k1)
	}
}

func TestKeyDistinct(t *testing.T) {
	seen := map[string]string{}
	for i := 0; i < 1000; i++ {
		u := fmt.Sprintf("https://example.com/img/%d.png", i)
		k := Key(u)
		if prev, ok := seen[k]; ok {
			t.Fatalf("collision: %s and %s both map to %s", prev, u, k)
		}
		seen[k] = u
	}
}

func TestExtFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://h/chart.png", ".png"},
		{"https://h/a.webp", ".webp"},
		{"https://h/a.gif", ".gif"},
		{"https://h/a.jpeg", ".jpg"},
		{"https://h/a.JPG?w=100", ".jpg"},
		{"https://h/media/12345", ""},
	}
	for _, tt := range tests {
		if got := ExtFromURL(tt.url); got != tt.want {
			t.Errorf("ExtFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestExtFromContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want string
	}{
		{"image/png", ".png"},
		{"image/webp", ".webp"},
		{"image/gif", ".gif"},
		{"image/jpeg", ".jpg"},
		{"text/html", ".jpg"},
		{"", ".jpg"},
	}
	for _, tt := range tests {
		if got := ExtFromContentType(tt.ct); got != tt.want {
			t.Errorf("ExtFromContentType(%q) = %q, want %q", tt.ct, got, tt.want)
		}
	}
}

func TestResolveExt(t *testing.T) {
	tests := []struct {
		url, ct string
		want    string
	}{
		{"https://h/chart.png", "", ".png"},
		{"https://h/media/123", "image/webp", ".webp"},
		{"https://h/media/123", "", ".jpg"},
		// Content type wins when both disagree.
		{"https://h/chart.png", "image/webp", ".webp"},
	}
	for _, tt := range tests {
		if got := ResolveExt(tt.url, tt.ct); got != tt.want {
			t.Errorf("ResolveExt(%q, %q) = %q, want %q", tt.url, tt.ct, got, tt.want)
		}
	}
}

func TestCandidateExts(t *testing.T) {
	got := CandidateExts(".webp")
	want := []string{".webp", ".jpg", ".png", ".gif"}
	if len(got) != len(want) {
		t.Fatalf("CandidateExts(.webp) = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CandidateExts(.webp)[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got = CandidateExts("")
	if got[0] != ".jpg" || len(got) != 4 {
		t.Errorf("CandidateExts(\"\") = %v, want .jpg first and 4 entries", got)
	}
}

func TestAbsoluteURL(t *testing.T) {
	const host = "https://www.cryptocompare.com"
	tests := []struct {
		raw  string
		want string
	}{
		{"https://a.com/x.png", "https://a.com/x.png"},
		{"http://a.com/x.png", "http://a.com/x.png"},
		{"//cdn.a.com/x.png", "https://cdn.a.com/x.png"},
		{"/media/x.png", host + "/media/x.png"},
		{"", ""},
		{"ftp://a.com/x.png", ""},
		{"x.png", ""},
	}
	for _, tt := range tests {
		if got := AbsoluteURL(tt.raw, host); got != tt.want {
			t.Errorf("AbsoluteURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
