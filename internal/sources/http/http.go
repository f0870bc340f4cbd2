package http

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"linkprobe/internal/logger"
	"linkprobe/internal/parser"
	"linkprobe/internal/sources"
)

type URLSource struct{}

// Fetch downloads a subscription body and extracts the proxy links in it.
// Bodies that are one big base64 blob (a common subscription format) are
// decoded first.
func (s *URLSource) Fetch(params map[string]interface{}) ([]string, error) {
	urlVal, ok := params["url"]
	if !ok {
		return nil, fmt.Errorf("missing 'url' in source config")
	}
	targetURL, ok := urlVal.(string)
	if !ok {
		return nil, fmt.Errorf("'url' must be a string")
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
	}

	if proxyVal, ok := params["_proxy_url"]; ok {
		if proxyStr, ok := proxyVal.(string); ok && proxyStr != "" {
			if pURL, err := url.Parse(proxyStr); err == nil {
				client.Transport = &http.Transport{
					Proxy: http.ProxyURL(pURL),
				}
				logger.Log.Debugf("HTTP source using proxy: %s", proxyStr)
			}
		}
	}

	logger.Log.Debugf("Fetching subscription: %s", targetURL)
	resp, err := client.Get(targetURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("non-200 status code: %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	body := string(bodyBytes)
	if !strings.Contains(body, "://") {
		if decoded, err := parser.DecodeBase64(strings.TrimSpace(body)); err == nil {
			body = decoded
		}
	}

	return parser.ExtractLinks(body), nil
}

func init() {
	sources.Register("http", func() sources.Source {
		return &URLSource{}
	})
}
