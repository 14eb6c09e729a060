package checker

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response is kept in the message.
const maxErrorBody = 1024

// retryAfterHeader reads Retry-After as seconds or an HTTP date relative to now.
func retryAfterHeader(resp *http.Response, now time.Time) (time.Duration, string) {
	if resp == nil || resp.Header == nil {
		return 0, ""
	}

	retry := resp.Header.Get("Retry-After")
	if retry == "" {
		return 0, ""
	}

	if seconds, err := time.ParseDuration(retry + "s"); err == nil {
		return seconds, retry
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		return parsed.Sub(now), retry
	}

	return 0, retry
}

func readErrorBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
