package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/andrejche/coinfly-v2/internal/imgcache"
	"github.com/andrejche/coinfly-v2/internal/logging"
)

const proxyCacheControl = "public, s-maxage=86400, stale-while-revalidate=604800"

// proxy is the stateless request-time image path: validate the origin host
// against the allow-list, fetch, and stream the image back. Used when an
// image was not pre-cached or for on-demand origins.
type proxy struct {
	allowed map[string]struct{}
	referer string
	client  *http.Client
	logger  *slog.Logger
}

func newProxy(allowedHosts []string, timeout time.Duration, logger *slog.Logger) *proxy {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	allowed := make(map[string]struct{}, len(allowedHosts))
	referer := ""
	for _, h := range allowedHosts {
		allowed[h] = struct{}{}
		if referer == "" {
			referer = "https://" + h + "/"
		}
	}
	return &proxy{
		allowed: allowed,
		referer: referer,
		client:  &http.Client{Timeout: timeout},
		logger:  logging.Default(logger),
	}
}

// ServeHTTP maps each failure mode to a distinct status so clients can tell
// a bad request from a missing image from a dead upstream:
// 400 missing/malformed ?u=, 403 host not allow-listed, 404 upstream
// non-2xx, 502 network failure.
func (p *proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("u")
	if raw == "" {
		http.Error(w, "missing ?u=", http.StatusBadRequest)
		return
	}

	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		http.Error(w, "bad url", http.StatusBadRequest)
		return
	}

	if _, ok := p.allowed[target.Host]; !ok {
		http.Error(w, "host not allowed", http.StatusForbidden)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		http.Error(w, "bad url", http.StatusBadRequest)
		return
	}
	req.Header.Set("User-Agent", "coinfly/1.0 (proxy)")
	req.Header.Set("Accept", "image/*,*/*;q=0.8")
	// Some hosts require a referer.
	req.Header.Set("Referer", p.referer)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("proxy upstream unreachable", "url", target.String(), "error", err)
		http.Error(w, "proxy failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = imgcache.ContentTypeForURL(target.Path)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", proxyCacheControl)
	if _, err := io.Copy(w, resp.Body); err != nil {
		// Headers are already out; the truncated body is all the client
		// sees, so at least leave a trace.
		p.logger.Debug("proxy stream interrupted", "url", target.String(), "error", err)
	}
}
