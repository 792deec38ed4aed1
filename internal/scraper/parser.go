package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
)

// PortalDateLayout is the DD-MM-YYYY format used across the portals
const PortalDateLayout = "02-01-2006"

// DateLayouts are the formats seen on Supreme Court listings
var DateLayouts = []string{
	PortalDateLayout,
	"02/01/2006",
	"02.01.2006",
	"2006-01-02",
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	partySplit = regexp.MustCompile(`(?i)\bvs?\b\.?`)
	honorific  = regexp.MustCompile(`(?i)Hon'?ble\s+`)
	judgeSplit = regexp.MustCompile(`(?i),\s*|\s+and\s+`)
)

// CleanText trims s and collapses runs of whitespace
func CleanText(s string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// StripBOM removes surrounding whitespace and byte order marks
func StripBOM(s string) string {
	return strings.Trim(s, " \t\r\n\ufeff")
}

// ParseDate parses a DD-MM-YYYY date. Anything else yields nil.
func ParseDate(text string) *models.Date {
	return ParseDateAny(text, PortalDateLayout)
}

// ParseDateAny tries each layout in turn and returns nil if none match
func ParseDateAny(text string, layouts ...string) *models.Date {
	text = CleanText(text)
	if text == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			d := models.DateOf(t)
			return &d
		}
	}
	return nil
}

// SplitParties splits "Petitioner vs Respondent" text. Without a separator
// the whole text is the petitioner.
func SplitParties(text string) (petitioner, respondent string) {
	text = CleanText(text)
	loc := partySplit.FindStringIndex(text)
	if loc == nil {
		return text, ""
	}
	return strings.TrimSpace(text[:loc[0]]), strings.TrimSpace(text[loc[1]:])
}

// PartiesFromCell reads parties from two <strong> spans when present and
// falls back to splitting the cell text
func PartiesFromCell(cell *goquery.Selection) (petitioner, respondent string) {
	strongs := cell.Find("strong")
	if strongs.Length() >= 2 {
		return CleanText(strongs.Eq(0).Text()), CleanText(strongs.Eq(1).Text())
	}
	return SplitParties(cell.Text())
}

// SplitJudges strips honorifics and splits on commas or "and"
func SplitJudges(text string) []string {
	text = honorific.ReplaceAllString(CleanText(text), "")
	judges := []string{}
	for _, part := range judgeSplit.Split(text, -1) {
		if part = strings.TrimSpace(part); part != "" {
			judges = append(judges, part)
		}
	}
	return judges
}

// ResolveURL makes href absolute against base, which is treated as a
// directory. Root-relative links resolve against the host.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}
	b, err := url.Parse(strings.TrimSuffix(base, "/") + "/")
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// ParseHTML parses an HTML document or fragment
func ParseHTML(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

// FindTable returns the first table matching preferred, falling back to the
// first table in the document. The selection is empty when there is none.
func FindTable(doc *goquery.Document, preferred string) *goquery.Selection {
	if preferred != "" {
		if t := doc.Find(preferred).First(); t.Length() > 0 {
			return t
		}
	}
	return doc.Find("table").First()
}

// DataRows returns every row after the header row, each as its cells
func DataRows(table *goquery.Selection) [][]*goquery.Selection {
	var rows [][]*goquery.Selection
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		var cells []*goquery.Selection
		tr.ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, td)
		})
		rows = append(rows, cells)
	})
	return rows
}

// LinkHref returns the href of the first anchor inside sel
func LinkHref(sel *goquery.Selection) string {
	href, _ := sel.Find("a[href]").First().Attr("href")
	return strings.TrimSpace(href)
}

// DecodeLenientJSON decodes data into v. Portal responses sometimes carry
// raw control characters inside strings; those are escaped and decoding is
// retried.
func DecodeLenientJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if retryErr := json.Unmarshal(escapeControlChars(data), v); retryErr != nil {
		return err
	}
	return nil
}

func escapeControlChars(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))
	inString, escaped := false, false
	for _, b := range data {
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case inString && b < 0x20:
			fmt.Fprintf(&out, `\u%04x`, b)
			continue
		}
		out.WriteByte(b)
	}
	return out.Bytes()
}
