// Package privacy scrubs credentials and hosts out of text that leaves the
// process, such as telemetry events and log lines.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

// urlPattern finds the URL schemes this application talks to: HTTP for tide
// and S3 endpoints, and MQTT broker transports.
var urlPattern = regexp.MustCompile(`\b(?:https?|tcp|ssl|tls|mqtts?|wss?|s3)://\S+`)

// ScrubMessage replaces every URL in message with an anonymized token.
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL converts a URL to a stable token that keeps the scheme, host
// category, port and path shape but no hostnames, credentials or names.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	var parts []string
	if u.Scheme != "" {
		parts = append(parts, u.Scheme)
	}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if u.Port() != "" {
		parts = append(parts, "port-"+u.Port())
	}
	if u.Path != "" && u.Path != "/" {
		parts = append(parts, anonymizePath(u.Path))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// RedactURL drops user info and query from rawURL, keeping scheme, host and
// path readable for local logs. Unparseable input is returned anonymized.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return AnonymizeURL(rawURL)
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		switch {
		case addr.IsLoopback():
			return "localhost"
		case addr.IsPrivate(), addr.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}

	// Keep only the TLD of domain names.
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}

// anonymizePath hashes each segment, keeping numeric ones recognizable.
func anonymizePath(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}

	var segments []string
	for segment := range strings.SplitSeq(path, "/") {
		switch {
		case segment == "":
			continue
		case isNumeric(segment):
			segments = append(segments, "numeric")
		default:
			hash := sha256.Sum256([]byte(segment))
			segments = append(segments, fmt.Sprintf("seg-%x", hash[:4]))
		}
	}
	return strings.Join(segments, "/")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
