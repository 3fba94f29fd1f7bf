package heuristics

import (
	"fmt"
	"net"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/normalize"
)

// LinkMismatchStrategy flags anchors whose visible text names one domain
// while the link points somewhere else.
type LinkMismatchStrategy struct{}

func (s *LinkMismatchStrategy) Name() string { return "link-text-mismatch" }

func (s *LinkMismatchStrategy) Detect(email *core.CanonicalEmail) []core.RedFlag {
	var flags []core.RedFlag
	for _, u := range email.URLs {
		displayDomain := displayedDomain(u.DisplayText)
		if displayDomain == "" || u.Domain == "" {
			continue
		}
		if displayDomain == u.Domain || strings.HasSuffix(u.Domain, "."+displayDomain) {
			continue
		}
		flags = append(flags, flag(
			"link text does not match destination",
			core.SeverityHigh,
			fmt.Sprintf("text shows %q but link goes to %q", displayDomain, u.Domain),
		))
	}
	return flags
}

// displayedDomain extracts a domain the anchor text claims to point at,
// if the text looks like a URL or bare domain at all.
func displayedDomain(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" || strings.ContainsAny(text, " \t\n") {
		return ""
	}
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return normalize.DomainOf(text)
	}
	if strings.Contains(text, ".") && !strings.ContainsAny(text, "@/") {
		return strings.TrimPrefix(text, "www.")
	}
	return ""
}

// SuspiciousURLStrategy flags IP-literal hosts, throwaway TLDs, URL
// shorteners, and credentials embedded in links.
type SuspiciousURLStrategy struct{}

var suspiciousTLDs = []string{".tk", ".ml", ".ga", ".cf", ".gq", ".top", ".xyz", ".club", ".work", ".zip"}

var urlShorteners = map[string]bool{
	"bit.ly":      true,
	"tinyurl.com": true,
	"goo.gl":      true,
	"t.co":        true,
	"ow.ly":       true,
	"is.gd":       true,
	"buff.ly":     true,
	"rebrand.ly":  true,
	"tiny.cc":     true,
	"shorturl.at": true,
}

func (s *SuspiciousURLStrategy) Name() string { return "suspicious-url" }

func (s *SuspiciousURLStrategy) Detect(email *core.CanonicalEmail) []core.RedFlag {
	var flags []core.RedFlag
	for _, u := range email.URLs {
		host := strings.TrimPrefix(u.Domain, "www.")

		if net.ParseIP(host) != nil {
			flags = append(flags, flag(
				"link uses raw IP address",
				core.SeverityHigh,
				fmt.Sprintf("destination %q has no domain name", u.Target),
			))
			continue
		}

		if urlShorteners[host] {
			flags = append(flags, flag(
				"shortened link hides destination",
				core.SeverityMedium,
				fmt.Sprintf("%q resolves through a URL shortener", u.Target),
			))
			continue
		}

		for _, tld := range suspiciousTLDs {
			if strings.HasSuffix(host, tld) {
				flags = append(flags, flag(
					"link on low-reputation domain",
					core.SeverityMedium,
					fmt.Sprintf("destination %q uses the %s top-level domain", host, tld),
				))
				break
			}
		}

		if strings.Contains(u.Target, "@") {
			flags = append(flags, flag(
				"link embeds credentials",
				core.SeverityHigh,
				fmt.Sprintf("%q contains an @ that can mask the real host", u.Target),
			))
		}
	}
	return flags
}
