package handlers

import "strings"

// extractCookieToken pulls a named cookie's value out of a raw Cookie header,
// returning "" when absent.
func extractCookieToken(cookieHeader, cookieName string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		part = strings.TrimSpace(part)
		if val, ok := strings.CutPrefix(part, cookieName+"="); ok {
			return val
		}
	}
	return ""
}
