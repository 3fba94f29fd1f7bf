package normalize

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

var urlRe = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// ExtractURLs finds bare URLs in plain text. The display text of a bare
// URL is the URL itself.
func ExtractURLs(text string) []core.URLRef {
	matches := urlRe.FindAllString(text, -1)
	refs := make([]core.URLRef, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?")
		refs = append(refs, core.URLRef{
			Target:      m,
			DisplayText: m,
			Domain:      DomainOf(m),
		})
	}
	return refs
}

// DomainOf returns the lowercased hostname of a URL, or the input itself
// when it does not parse as a URL.
func DomainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return strings.ToLower(u.Hostname())
}

// AddressDomain extracts the domain part of an address header value,
// tolerating display names and angle brackets.
func AddressDomain(header string) string {
	addr := header
	if start := strings.LastIndex(header, "<"); start >= 0 {
		if end := strings.Index(header[start:], ">"); end > 0 {
			addr = header[start+1 : start+end]
		}
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr[at+1:]))
}
