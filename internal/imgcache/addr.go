// Package imgcache caches remote news images under content-addressed keys.
// The key for an image is derived from its source URL, so deciding whether
// an image was already fetched needs no separate index: probe the store.
package imgcache

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// keyLen is the hex prefix length of the derived cache key. 16 chars of a
// sha1 digest (64 bits) is plenty for a corpus of news thumbnails.
const keyLen = 16

// Key derives the deterministic cache key for a source URL.
func Key(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:keyLen]
}

// ExtFromURL guesses an image extension from the URL itself. Returns "" when
// the URL gives no hint (common for dynamic image endpoints).
func ExtFromURL(url string) string {
	u := strings.ToLower(url)
	switch {
	case strings.Contains(u, ".png"):
		return ".png"
	case strings.Contains(u, ".webp"):
		return ".webp"
	case strings.Contains(u, ".gif"):
		return ".gif"
	case strings.Contains(u, ".jpeg"), strings.Contains(u, ".jpg"):
		return ".jpg"
	}
	return ""
}

// ExtFromContentType maps a response content type to an extension,
// defaulting to ".jpg".
func ExtFromContentType(ct string) string {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	case strings.Contains(ct, "gif"):
		return ".gif"
	}
	return ".jpg"
}

// ResolveExt picks the final stored extension. The response content type
// wins when it names a known image type; the URL heuristic is the fallback,
// then ".jpg".
func ResolveExt(url, contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "png"):
		return ".png"
	case strings.Contains(ct, "webp"):
		return ".webp"
	case strings.Contains(ct, "gif"):
		return ".gif"
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return ".jpg"
	}
	if ext := ExtFromURL(url); ext != "" {
		return ext
	}
	return ".jpg"
}

// ContentTypeForURL resolves a content type from URL heuristics alone, for
// responses that carry none.
func ContentTypeForURL(url string) string {
	switch ExtFromURL(url) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	}
	return "image/jpeg"
}

// CandidateExts returns the store probe order for a URL-derived extension:
// the URL's own hint first (".jpg" when absent), then the fixed fallbacks.
// Probing every candidate means a hit is found even when an earlier run
// stored the asset under a content-type-derived extension.
func CandidateExts(urlExt string) []string {
	if urlExt == "" {
		urlExt = ".jpg"
	}
	out := []string{urlExt}
	for _, e := range []string{".jpg", ".png", ".webp", ".gif"} {
		if e != urlExt {
			out = append(out, e)
		}
	}
	return out
}
