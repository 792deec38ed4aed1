package judgments

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
)

var (
	ofTotal  = regexp.MustCompile(`of\s+(\d+)`)
	ofNumber = regexp.MustCompile(`of \d+`)
	nextText = regexp.MustCompile(`(?i)Next`)
)

// ParseSearch parses a results page. Columns: Sr | - | Details | Court |
// Judges | Date | PDF.
func ParseSearch(html, baseURL string, page int) models.SearchResult[models.JudgmentResult] {
	result := models.SearchResult[models.JudgmentResult]{
		Items: []models.JudgmentResult{},
		Page:  page,
	}
	doc, err := scraper.ParseHTML(html)
	if err != nil {
		return result
	}
	table := scraper.FindTable(doc, "table#resultTable")
	if table.Length() == 0 {
		return result
	}

	for _, cols := range scraper.DataRows(table) {
		if len(cols) < 7 {
			continue
		}
		title, caseNumber := titleAndCase(cols[2])
		judges := scraper.SplitJudges(cols[4].Text())
		pdfURL := scraper.ResolveURL(baseURL, scraper.LinkHref(cols[6]))

		result.Items = append(result.Items, models.JudgmentResult{
			Title:        title,
			CourtName:    scraper.CleanText(cols[3].Text()),
			CaseNumber:   caseNumber,
			JudgmentDate: scraper.ParseDate(cols[5].Text()),
			Judges:       judges,
			PDFURL:       pdfURL,
			BenchType:    models.BenchTypeFor(len(judges)),
			SourceURL:    pdfURL,
		})
	}

	result.TotalCount = totalCount(doc)
	if result.TotalCount == 0 {
		result.TotalCount = len(result.Items)
	}
	result.PageSize = len(result.Items)
	result.HasNext = hasNext(doc)
	return result
}

// The title is in <strong>; whatever else the cell holds is the case number
func titleAndCase(cell *goquery.Selection) (string, string) {
	title := scraper.CleanText(cell.Find("strong").First().Text())
	full := scraper.CleanText(cell.Text())
	if title == "" {
		return "", full
	}
	return title, strings.TrimSpace(strings.ReplaceAll(full, title, ""))
}

func totalCount(doc *goquery.Document) int {
	holder := doc.Find("div.pagination").First()
	if holder.Length() == 0 {
		holder = doc.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return ofNumber.MatchString(s.Text())
		}).First()
	}
	if holder.Length() == 0 {
		return 0
	}
	m := ofTotal.FindStringSubmatch(holder.Text())
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func hasNext(doc *goquery.Document) bool {
	if doc.Find("a.next").Length() > 0 {
		return true
	}
	return doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return nextText.MatchString(s.Text())
	}).Length() > 0
}
