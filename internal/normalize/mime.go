package normalize

import (
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/mikey/llm-phishing-detector/internal/core"
)

// extractBodies walks the message body, flattening multipart containers
// into a plain-text body and an HTML body. Attachments are skipped; only
// the charset and transfer encoding of text parts are decoded.
func extractBodies(msg *mail.Message) (plain, html string, flags []core.CompletenessFlag) {
	contentType := msg.Header.Get("Content-Type")
	encoding := msg.Header.Get("Content-Transfer-Encoding")

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		body, ambiguous := decodePart(msg.Body, encoding, charsetOf(params))
		if ambiguous {
			flags = append(flags, core.FlagAmbiguousCharset)
		}
		if strings.HasPrefix(mediaType, "text/html") {
			return "", body, flags
		}
		return body, "", flags
	}

	boundary, ok := params["boundary"]
	if !ok {
		body, _ := decodePart(msg.Body, encoding, "")
		return body, "", flags
	}

	var p, h strings.Builder
	flags = walkMultipart(msg.Body, boundary, &p, &h, flags, 0)
	return p.String(), h.String(), flags
}

const maxMultipartDepth = 5

func walkMultipart(r io.Reader, boundary string, plain, html *strings.Builder, flags []core.CompletenessFlag, depth int) []core.CompletenessFlag {
	if depth > maxMultipartDepth {
		return flags
	}

	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return flags
		}

		partType := part.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(partType)
		if err != nil {
			mediaType = "text/plain"
		}

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			if nested, ok := params["boundary"]; ok {
				flags = walkMultipart(part, nested, plain, html, flags, depth+1)
			}
		case strings.HasPrefix(mediaType, "text/plain"):
			body, ambiguous := decodePart(part, part.Header.Get("Content-Transfer-Encoding"), charsetOf(params))
			if ambiguous {
				flags = appendFlag(flags, core.FlagAmbiguousCharset)
			}
			plain.WriteString(body)
			plain.WriteString("\n")
		case strings.HasPrefix(mediaType, "text/html"):
			body, ambiguous := decodePart(part, part.Header.Get("Content-Transfer-Encoding"), charsetOf(params))
			if ambiguous {
				flags = appendFlag(flags, core.FlagAmbiguousCharset)
			}
			html.WriteString(body)
			html.WriteString("\n")
		}
	}
}

// decodePart applies the transfer encoding and charset of a single text
// part. An unknown charset leaves the bytes as-is and reports ambiguity.
func decodePart(r io.Reader, transferEncoding, charset string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, newBase64Cleaner(r))
	}

	ambiguous := false
	if charset != "" && !isUTF8Compatible(charset) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			ambiguous = true
		} else {
			r = transform.NewReader(r, enc.NewDecoder())
		}
	}

	data, err := io.ReadAll(r)
	if err != nil && len(data) == 0 {
		return "", ambiguous
	}
	return string(data), ambiguous
}

func charsetOf(params map[string]string) string {
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

func isUTF8Compatible(charset string) bool {
	switch charset {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return true
	}
	return false
}

func appendFlag(flags []core.CompletenessFlag, flag core.CompletenessFlag) []core.CompletenessFlag {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}

// base64Cleaner strips whitespace so folded base64 bodies decode cleanly.
type base64Cleaner struct {
	r io.Reader
}

func newBase64Cleaner(r io.Reader) io.Reader { return &base64Cleaner{r: r} }

func (c *base64Cleaner) Read(p []byte) (int, error) {
	buf := make([]byte, len(p))
	n, err := c.r.Read(buf)
	j := 0
	for _, b := range buf[:n] {
		switch b {
		case '\r', '\n', ' ', '\t':
			continue
		}
		p[j] = b
		j++
	}
	if j == 0 && err == nil && n > 0 {
		return c.Read(p)
	}
	return j, err
}
