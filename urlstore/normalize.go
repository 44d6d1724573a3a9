package urlstore

import (
	"net/url"
	"regexp"
	"strings"
)

// trackingParams lists query parameters stripped during normalization.
// Prefixed entries (ending in "_") match by prefix.
var trackingParams = []string{
	"utm_", "fbclid", "gclid", "gclsrc", "dclid", "msclkid", "mc_eid", "mc_cid", "ref", "ref_src",
}

var multiSlash = regexp.MustCompile(`/{2,}`)

// Normalize canonicalizes rawURL per spec §4.2: lowercase scheme/host,
// strip default ports, strip fragment, drop tracking params, collapse
// duplicate slashes, trim a trailing slash (unless the path is "/"),
// percent-decode unreserved characters. Invalid URLs return ok=false.
func Normalize(rawURL string) (string, bool) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", false
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !isDefaultPort(scheme, port) {
		host = host + ":" + port
	}

	path := multiSlash.ReplaceAllString(u.EscapedPath(), "/")
	if path == "" {
		path = "/"
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	query := stripTrackingParams(u.Query())

	// Re-decode unreserved characters that url.Parse may have left
	// percent-encoded (letters, digits, - . _ ~).
	decodedPath, err := url.PathUnescape(path)
	if err == nil {
		path = reencodeReserved(decodedPath)
	}

	normalized := scheme + "://" + host + path
	if encoded := query.Encode(); encoded != "" {
		normalized += "?" + encoded
	}
	// Fragment is intentionally dropped.
	return normalized, true
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}

func stripTrackingParams(q url.Values) url.Values {
	out := url.Values{}
	for key, vals := range q {
		lower := strings.ToLower(key)
		if isTrackingParam(lower) {
			continue
		}
		out[key] = vals
	}
	return out
}

func isTrackingParam(key string) bool {
	for _, p := range trackingParams {
		if strings.HasSuffix(p, "_") {
			if strings.HasPrefix(key, p) {
				return true
			}
			continue
		}
		if key == p {
			return true
		}
	}
	return false
}

// reencodeReserved re-escapes a decoded path so that "/" and unreserved
// characters stay plain while everything else (including %, ?, #) is
// percent-encoded.
func reencodeReserved(decodedPath string) string {
	var b strings.Builder
	for _, r := range decodedPath {
		switch {
		case r == '/' || isUnreserved(r):
			b.WriteRune(r)
		default:
			b.WriteString(url.QueryEscape(string(r)))
		}
	}
	return b.String()
}

func isUnreserved(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '-' || r == '.' || r == '_' || r == '~'
}

func hostOf(normalizedURL string) string {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func pathOf(normalizedURL string) string {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return "/"
	}
	return u.Path
}
