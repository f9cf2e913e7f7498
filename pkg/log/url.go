package log

import (
	"log/slog"
	"net/url"
	"strings"
)

var sensitiveParams = []string{"password", "secret", "token"}

// ScrubbedURL returns an attribute holding rawURL with its credentials
// masked, either in the userinfo part or in well-known query parameters.
func ScrubbedURL(name string, rawURL string) slog.Attr {
	u, err := url.Parse(rawURL)
	if err != nil {
		return slog.String(name, rawURL)
	}

	scrubbed := *u

	if scrubbed.User != nil {
		scrubbed.User = url.UserPassword("xxx", "xxx")
	}

	if scrubbed.RawQuery != "" {
		query := scrubbed.Query()
		for key := range query {
			for _, sensitive := range sensitiveParams {
				if strings.Contains(strings.ToLower(key), sensitive) {
					query.Set(key, "xxx")
				}
			}
		}
		scrubbed.RawQuery = query.Encode()
	}

	return slog.String(name, scrubbed.String())
}
