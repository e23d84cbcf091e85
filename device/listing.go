package device

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	IsDirectory bool   `json:"isDirectory"`
	Size        int64  `json:"size"`
	Date        string `json:"date"`
}

// Listing is the payload embedded in a directory page.
type Listing struct {
	DeviceName string  `json:"deviceName"`
	FileList   []Entry `json:"fileList"`
}

const listingMarker = "const json"

// ParseListing extracts the listing from a directory page. The page carries
// it as a single-quoted JSON literal assigned in an inline script:
//
//	<script>const json = '{"fileList":[...]}'</script>
func ParseListing(r io.Reader) (*Listing, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	script := findScript(doc)
	if script == "" {
		return nil, ErrNoListing
	}
	raw, ok := quotedLiteral(script[strings.Index(script, listingMarker)+len(listingMarker):])
	if !ok {
		return nil, ErrNoListing
	}

	var l Listing
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoListing, err)
	}
	return &l, nil
}

// findScript returns the text of the first script element holding the
// listing.
func findScript(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "script" {
		text := textContent(n)
		if strings.Contains(text, listingMarker) {
			return text
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := findScript(c); s != "" {
			return s
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// quotedLiteral returns the text between the first pair of single quotes
// after "=".
func quotedLiteral(s string) (string, bool) {
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return "", false
	}
	s = s[eq+1:]
	start := strings.IndexByte(s, '\'')
	if start < 0 {
		return "", false
	}
	s = s[start+1:]
	end := strings.IndexByte(s, '\'')
	if end < 0 {
		return "", false
	}
	return s[:end], true
}
