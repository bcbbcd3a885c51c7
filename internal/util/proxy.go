package util

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// NewProxyFunc creates a proxy function for document downloads.
// If no proxy URLs are provided, falls back to environment variables.
// noProxy is a comma-separated list of hosts or domain suffixes fetched directly.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := parseNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if bypass(req.URL.Hostname()) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return parseProxy(httpsProxy)
		}
		if httpProxy != "" {
			return parseProxy(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func parseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid proxy URL %q", raw)
	}
	return u, nil
}

// parseNoProxy returns a matcher for the hosts in a NO_PROXY style list
func parseNoProxy(noProxy string) func(host string) bool {
	var entries []string
	for _, entry := range strings.Split(noProxy, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if h, _, err := net.SplitHostPort(entry); err == nil {
			entry = h
		}
		entries = append(entries, entry)
	}

	return func(host string) bool {
		host = strings.ToLower(host)
		for _, entry := range entries {
			switch {
			case entry == "*":
				return true
			case host == strings.TrimPrefix(entry, "."):
				return true
			case strings.HasSuffix(host, "."+strings.TrimPrefix(entry, ".")):
				return true
			}
		}
		return false
	}
}
