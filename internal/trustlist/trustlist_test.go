package trustlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

func writeList(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trusted_domains.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestAssess(t *testing.T) {
	list := New(DefaultDeltas(), nil)
	path := writeList(t, `
# well known senders
irs.gov
mit.edu
paypal.com
microsoft.com corporate
`)
	require.NoError(t, list.LoadFile(path))
	assert.Equal(t, 4, list.Size())

	tests := []struct {
		name     string
		domain   string
		category core.DomainCategory
		delta    int
	}{
		{
			name:     "exact government match",
			domain:   "irs.gov",
			category: core.DomainGovernment,
			delta:    -4,
		},
		{
			name:     "subdomain matches by longest suffix",
			domain:   "mail.irs.gov",
			category: core.DomainGovernment,
			delta:    -4,
		},
		{
			name:     "education entry",
			domain:   "mit.edu",
			category: core.DomainEducation,
			delta:    -3,
		},
		{
			name:     "listed corporate domain",
			domain:   "paypal.com",
			category: core.DomainKnownCorporate,
			delta:    -2,
		},
		{
			name:     "unlisted gov suffix still trusted",
			domain:   "treasury.gov",
			category: core.DomainGovernment,
			delta:    -4,
		},
		{
			name:     "unknown domain gets no delta",
			domain:   "paypa1-secure.com",
			category: core.DomainUnknown,
			delta:    0,
		},
		{
			name:     "lookalike of listed domain does not match",
			domain:   "paypal.com.evil.net",
			category: core.DomainUnknown,
			delta:    0,
		},
		{
			name:     "empty domain",
			domain:   "",
			category: core.DomainUnknown,
			delta:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := list.Assess(tt.domain)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.delta, got.TrustDelta)
		})
	}
}

func TestAssessIsCaseInsensitive(t *testing.T) {
	list := New(DefaultDeltas(), nil)
	path := writeList(t, "PayPal.com\n")
	require.NoError(t, list.LoadFile(path))

	got := list.Assess("PAYPAL.COM")
	assert.Equal(t, core.DomainKnownCorporate, got.Category)
}

func TestLoadFileReplacesSnapshot(t *testing.T) {
	list := New(DefaultDeltas(), nil)
	path := writeList(t, "paypal.com\n")
	require.NoError(t, list.LoadFile(path))
	require.Equal(t, core.DomainKnownCorporate, list.Assess("paypal.com").Category)

	require.NoError(t, os.WriteFile(path, []byte("amazon.com\n"), 0o644))
	require.NoError(t, list.LoadFile(path))

	assert.Equal(t, core.DomainUnknown, list.Assess("paypal.com").Category)
	assert.Equal(t, core.DomainKnownCorporate, list.Assess("amazon.com").Category)
}

func TestDefaultDeltaOrdering(t *testing.T) {
	d := DefaultDeltas()

	// Government domains warrant at least as strong a reduction as education,
	// and education at least as strong as listed corporate senders.
	assert.LessOrEqual(t, d.Government, d.Education)
	assert.LessOrEqual(t, d.Education, d.KnownCorporate)
	assert.Negative(t, d.KnownCorporate)
}

func TestLoadFileMissing(t *testing.T) {
	list := New(DefaultDeltas(), nil)
	err := list.LoadFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
