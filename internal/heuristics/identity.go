package heuristics

import (
	"fmt"
	"strings"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"github.com/mikey/llm-phishing-detector/internal/normalize"
)

// ReplyToMismatchStrategy flags a Reply-To pointing to a different domain
// than the sender, a common redirection trick.
type ReplyToMismatchStrategy struct{}

func (s *ReplyToMismatchStrategy) Name() string { return "reply-to-mismatch" }

func (s *ReplyToMismatchStrategy) Detect(email *core.CanonicalEmail) []core.RedFlag {
	fromDomain := normalize.AddressDomain(email.Header("from"))
	replyDomain := normalize.AddressDomain(email.Header("reply-to"))
	if fromDomain == "" || replyDomain == "" || fromDomain == replyDomain {
		return nil
	}
	return []core.RedFlag{flag(
		"reply-to differs from sender",
		core.SeverityMedium,
		fmt.Sprintf("sender domain is %q but replies go to %q", fromDomain, replyDomain),
	)}
}

// LookalikeDomainStrategy flags sender and link domains a short edit
// distance away from well-known brands, catching paypa1.com style
// typosquats.
type LookalikeDomainStrategy struct {
	Brands []string
}

// DefaultBrands are frequently impersonated senders.
var DefaultBrands = []string{
	"paypal.com",
	"amazon.com",
	"apple.com",
	"microsoft.com",
	"google.com",
	"netflix.com",
	"facebook.com",
	"instagram.com",
	"chase.com",
	"wellsfargo.com",
	"bankofamerica.com",
	"irs.gov",
	"usps.com",
	"fedex.com",
	"dhl.com",
	"docusign.com",
	"dropbox.com",
	"linkedin.com",
}

func (s *LookalikeDomainStrategy) Name() string { return "lookalike-domain" }

func (s *LookalikeDomainStrategy) Detect(email *core.CanonicalEmail) []core.RedFlag {
	brands := s.Brands
	if len(brands) == 0 {
		brands = DefaultBrands
	}

	candidates := make(map[string]string)
	if d := normalize.AddressDomain(email.Header("from")); d != "" {
		candidates[d] = "sender"
	}
	for _, u := range email.URLs {
		host := strings.TrimPrefix(u.Domain, "www.")
		if host != "" {
			if _, ok := candidates[host]; !ok {
				candidates[host] = "link"
			}
		}
	}

	var flags []core.RedFlag
	for domain, role := range candidates {
		for _, brand := range brands {
			if domain == brand || strings.HasSuffix(domain, "."+brand) {
				continue
			}
			if d := levenshtein(registrable(domain), registrable(brand)); d > 0 && d <= 2 {
				flags = append(flags, flag(
					"lookalike domain",
					core.SeverityHigh,
					fmt.Sprintf("%s domain %q resembles %q", role, domain, brand),
				))
				break
			}
			// Brand name buried inside an unrelated domain, e.g.
			// paypal.com.evil.net or paypal-secure.com.
			brandName := strings.SplitN(brand, ".", 2)[0]
			if len(brandName) >= 4 && strings.Contains(domain, brandName) && registrable(domain) != registrable(brand) {
				flags = append(flags, flag(
					"lookalike domain",
					core.SeverityHigh,
					fmt.Sprintf("%s domain %q embeds the %q brand name", role, domain, brandName),
				))
				break
			}
		}
	}
	return flags
}

// registrable strips subdomains down to the last two labels.
func registrable(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return domain
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
