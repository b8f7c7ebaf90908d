package imgcache

import (
	"context"
	"log/slog"
	"strings"

	"github.com/andrejche/coinfly-v2/internal/logging"
	"github.com/andrejche/coinfly-v2/internal/store"
)

// Resolver turns a raw remote image reference into a stable local reference,
// fetching and caching the asset at most once per URL. Resolve is best
// effort: any failure yields "", and the caller falls back to the remote
// URL or shows no image.
//
// Resolver is safe for concurrent use across distinct images; the store's
// idempotent writes make overlap on the same key harmless.
type Resolver struct {
	store     store.Store
	fetcher   *Fetcher
	imageHost string
	logger    *slog.Logger
}

func NewResolver(st store.Store, f *Fetcher, imageHost string, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:     st,
		fetcher:   f,
		imageHost: strings.TrimRight(imageHost, "/"),
		logger:    logging.Default(logger).With("component", "imgcache"),
	}
}

// AbsoluteURL rewrites protocol-relative and root-relative references
// against host. Returns "" for anything that cannot become an absolute
// http(s) URL.
func AbsoluteURL(raw, host string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		if host == "" {
			return ""
		}
		return strings.TrimRight(host, "/") + raw
	}
	return ""
}

// Resolve returns the public reference for rawRef's cached asset, or "" when
// no local asset could be produced.
func (r *Resolver) Resolve(ctx context.Context, rawRef string) string {
	url := AbsoluteURL(rawRef, r.imageHost)
	if url == "" {
		return ""
	}

	key := Key(url)

	// Cache hit under any candidate extension means no network call.
	for _, ext := range CandidateExts(ExtFromURL(url)) {
		ok, err := r.store.Exists(ctx, key, ext)
		if err != nil {
			r.logger.Warn("store probe failed", "key", key, "ext", ext, "error", err)
			continue
		}
		if ok {
			return r.store.PublicRef(key, ext)
		}
	}

	body, contentType, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		r.logger.Debug("image fetch failed", "url", url, "error", err)
		return ""
	}

	ext := ResolveExt(url, contentType)
	if contentType == "" {
		contentType = ContentTypeForURL(url)
	}

	if err := r.store.Write(ctx, key, ext, body, contentType); err != nil {
		r.logger.Warn("store write failed", "key", key, "ext", ext, "error", err)
		return ""
	}

	return r.store.PublicRef(key, ext)
}
