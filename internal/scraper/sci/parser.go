package sci

import (
	"path"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
)

// CourtName is set on every result
const CourtName = "Supreme Court of India"

var pdfHref = regexp.MustCompile(`(?i)\.pdf`)

// ParseJudgmentList extracts every table row carrying a PDF link. The site
// has no stable layout, so metadata is positional: the first cell that parses
// as a date is the judgment date, the next cell the title and the one after
// that the case number.
func ParseJudgmentList(html, baseURL string) []models.JudgmentResult {
	results := []models.JudgmentResult{}
	doc, err := scraper.ParseHTML(html)
	if err != nil {
		return results
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cols := row.ChildrenFiltered("td")
		if cols.Length() < 3 {
			return
		}

		link := row.Find("a[href]").FilterFunction(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			return pdfHref.MatchString(href)
		}).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		pdfURL := scraper.ResolveURL(baseURL, href)

		var (
			date       *models.Date
			title      string
			caseNumber string
		)
		cols.Each(func(_ int, col *goquery.Selection) {
			text := scraper.CleanText(col.Text())
			switch {
			case date == nil:
				date = scraper.ParseDateAny(text, scraper.DateLayouts...)
			case title == "":
				title = text
			case caseNumber == "":
				caseNumber = text
			}
		})
		if title == "" {
			title = scraper.CleanText(link.Text())
		}
		if title == "" {
			title = path.Base(pdfURL)
		}

		results = append(results, models.JudgmentResult{
			Title:        title,
			CourtName:    CourtName,
			CaseNumber:   caseNumber,
			JudgmentDate: date,
			PDFURL:       pdfURL,
			SourceURL:    pdfURL,
			SourceID:     href,
		})
	})
	return results
}
