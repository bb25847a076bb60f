package body

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MimeTextPlain = "text/plain"
	MimeTextHTML  = "text/html"

	// MaxLength is the hard cap, in characters, on decoded body text.
	MaxLength = 512

	// maxDepth bounds the walk over nested parts.
	maxDepth = 32
)

// Header is a single message header as carried by a payload.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartBody holds the base64url-encoded content of a leaf part.
type PartBody struct {
	Size int    `json:"size,omitempty"`
	Data string `json:"data,omitempty"`
}

// Part is one node of a message body tree. A part carries either encoded
// body data or child parts.
type Part struct {
	PartID   string    `json:"partId,omitempty"`
	MimeType string    `json:"mimeType"`
	Filename string    `json:"filename,omitempty"`
	Headers  []Header  `json:"headers,omitempty"`
	Body     *PartBody `json:"body,omitempty"`
	Parts    []*Part   `json:"parts,omitempty"`
}

// Data returns the encoded body data of the part, or "".
func (p *Part) Data() string {
	if p == nil || p.Body == nil {
		return ""
	}
	return p.Body.Data
}

// Header returns the first header value matching name, case-insensitively.
func (p *Part) Header(name string) string {
	if p == nil {
		return ""
	}
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// NewTextPart builds a leaf part holding text encoded the way payloads carry it.
func NewTextPart(mimeType, text string) *Part {
	return &Part{
		MimeType: mimeType,
		Body: &PartBody{
			Size: len(text),
			Data: EncodeData([]byte(text)),
		},
	}
}

// Markup stripping patterns
var (
	scriptPattern     = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	stylePattern      = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
	)
)

// Decode extracts the readable text of a payload. A plain-text part is
// preferred over an HTML part at the same level; nested multiparts are
// searched depth-first for plain text. The result is whitespace-collapsed
// and capped at MaxLength characters. Undecodable parts count as empty.
func Decode(p *Part) string {
	return Normalize(extract(p))
}

func extract(p *Part) string {
	if p == nil {
		return ""
	}

	if len(p.Parts) == 0 {
		data := p.Data()
		if data == "" {
			return ""
		}
		text := DecodeData(data)
		if isMime(p.MimeType, MimeTextHTML) {
			text = StripHTML(text)
		}
		return text
	}

	var text string
	if part := firstWithData(p.Parts, MimeTextPlain); part != nil {
		text = DecodeData(part.Data())
	}
	if text == "" {
		if part := firstWithData(p.Parts, MimeTextHTML); part != nil {
			text = StripHTML(DecodeData(part.Data()))
		}
	}
	if text == "" {
		text = nestedPlain(p.Parts, 1)
	}
	return text
}

func firstWithData(parts []*Part, mimeType string) *Part {
	for _, part := range parts {
		if part != nil && isMime(part.MimeType, mimeType) && part.Data() != "" {
			return part
		}
	}
	return nil
}

// nestedPlain returns the first non-empty plain-text body found depth-first.
func nestedPlain(parts []*Part, depth int) string {
	if depth > maxDepth {
		return ""
	}
	for _, part := range parts {
		if part == nil {
			continue
		}
		if len(part.Parts) > 0 {
			if text := nestedPlain(part.Parts, depth+1); text != "" {
				return text
			}
		}
		if isMime(part.MimeType, MimeTextPlain) && part.Data() != "" {
			return DecodeData(part.Data())
		}
	}
	return ""
}

func isMime(got, want string) bool {
	if i := strings.IndexByte(got, ';'); i >= 0 {
		got = got[:i]
	}
	return strings.EqualFold(strings.TrimSpace(got), want)
}

// DecodeData decodes base64url body data into UTF-8 text. Missing padding
// and embedded whitespace are tolerated. Invalid input yields "".
func DecodeData(data string) string {
	data = strings.Map(func(r rune) rune {
		switch r {
		case '-':
			return '+'
		case '_':
			return '/'
		case ' ', '\t', '\r', '\n', '\f':
			return -1
		}
		return r
	}, data)
	data = strings.TrimRight(data, "=")
	if len(data)%4 == 1 {
		return ""
	}

	raw, err := base64.RawStdEncoding.DecodeString(data)
	if err != nil || !utf8.Valid(raw) {
		return ""
	}
	return string(raw)
}

// EncodeData encodes raw bytes as base64url body data.
func EncodeData(raw []byte) string {
	return base64.URLEncoding.EncodeToString(raw)
}

// StripHTML removes script and style blocks and all tags from html, decodes
// the common entities and collapses whitespace.
func StripHTML(html string) string {
	text := scriptPattern.ReplaceAllString(html, "")
	text = stylePattern.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	text = tagPattern.ReplaceAllString(text, " ")
	return CollapseSpace(text)
}

// CollapseSpace replaces whitespace runs with a single space and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// Normalize collapses whitespace and caps the text at MaxLength characters.
func Normalize(s string) string {
	return Truncate(CollapseSpace(s), MaxLength)
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
