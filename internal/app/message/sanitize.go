package message

import "github.com/microcosm-cc/bluemonday"

// formattingTags is the markup allowed in message bodies in addition to img.
var formattingTags = []string{
	"address", "article", "aside", "footer", "header",
	"h1", "h2", "h3", "h4", "h5", "h6", "hgroup", "main", "nav", "section",
	"blockquote", "dd", "div", "dl", "dt", "figcaption", "figure", "hr", "li", "ol", "p", "pre", "ul",
	"a", "abbr", "b", "bdi", "bdo", "br", "cite", "code", "data", "dfn", "em", "i", "kbd", "mark",
	"q", "rb", "rp", "rt", "rtc", "ruby", "s", "samp", "small", "span", "strong", "sub", "sup",
	"time", "u", "var", "wbr",
	"caption", "col", "colgroup", "table", "tbody", "td", "tfoot", "th", "thead", "tr",
}

// Sanitizer strips script and unknown markup from message content.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the message allow-list: formatting tags plus img, class/id/style on every
// element, src/alt on img, href on links, and only the http, https and data URL schemes.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(formattingTags...)
	p.AllowElements("img")

	p.AllowAttrs("class", "id", "style").Globally()
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("href").OnElements("a")

	p.AllowURLSchemes("http", "https", "data")
	p.AllowDataURIImages()

	return &Sanitizer{policy: p}
}

// Sanitize returns the safe form of s. Sanitize(Sanitize(s)) == Sanitize(s).
func (s *Sanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
