package hcservices

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
)

// flexString accepts a JSON string, number, bool or null
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case data[0] == '{', data[0] == '[':
		return fmt.Errorf("unexpected %s for string field", data[:1])
	default:
		*f = flexString(data)
	}
	return nil
}

func (f flexString) String() string {
	return strings.TrimSpace(string(f))
}

func (f flexString) Int() int {
	n, _ := strconv.Atoi(f.String())
	return n
}

type envelope struct {
	Con        json.RawMessage `json:"con"`
	TotRecords flexString      `json:"totRecords"`
	Error      flexString      `json:"Error"`
}

// caseRecord is one inner record of a showRecords response. Every field is
// optional.
type caseRecord struct {
	CNR        flexString `json:"cino"`
	CaseNo     flexString `json:"case_no"`
	CaseNo2    flexString `json:"case_no2"`
	CaseType   flexString `json:"case_type"`
	CaseYear   flexString `json:"case_year"`
	PetName    flexString `json:"pet_name"`
	ResName    flexString `json:"res_name"`
	StatusName flexString `json:"status_name"`
	Status     flexString `json:"status"`
	RegDate    flexString `json:"reg_date"`
}

func (r caseRecord) toCaseInfo() models.CaseInfo {
	number := ""
	if no, year := r.CaseNo2.String(), r.CaseYear.String(); no != "" && year != "" {
		number = no + "/" + year
	}
	status := r.StatusName.String()
	if status == "" {
		status = r.Status.String()
	}
	return models.CaseInfo{
		CaseNumber:       number,
		CaseType:         r.CaseType.String(),
		CNRNumber:        r.CNR.String(),
		FilingNumber:     r.CaseNo.String(),
		RegistrationDate: scraper.ParseDate(r.RegDate.String()),
		Petitioner:       r.PetName.String(),
		Respondent:       r.ResName.String(),
		Status:           status,
	}
}

func decodeEnvelope(raw string) (envelope, bool) {
	var env envelope
	text := scraper.StripBOM(raw)
	if !strings.HasPrefix(text, "{") {
		return env, false
	}
	if err := scraper.DecodeLenientJSON([]byte(text), &env); err != nil {
		return env, false
	}
	return env, true
}

// challengeRejection reports whether con is a message mentioning the
// CAPTCHA, in any case, and returns it
func (env envelope) challengeRejection() (string, bool) {
	con := bytes.TrimSpace(env.Con)
	if len(con) == 0 || con[0] != '"' {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(con, &msg); err != nil {
		return "", false
	}
	return msg, strings.Contains(strings.ToLower(msg), "captcha")
}

// parseEnvelope decodes a showRecords JSON envelope into its inner records
// and the reported total. Bodies that are not JSON yield no records.
func parseEnvelope(raw string) ([]caseRecord, int, error) {
	env, ok := decodeEnvelope(raw)
	if !ok {
		return nil, 0, nil
	}

	if msg, refused := env.challengeRejection(); refused {
		return nil, 0, fmt.Errorf("%w: %s", scraper.ErrChallengeRejected, msg)
	}
	con := bytes.TrimSpace(env.Con)
	if msg := env.Error.String(); msg != "" {
		return nil, 0, &scraper.ServerError{Message: msg}
	}

	total := env.TotRecords.Int()
	if len(con) == 0 || con[0] != '[' {
		return nil, total, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(con, &list); err != nil || len(list) == 0 {
		return nil, total, nil
	}

	inner := bytes.TrimSpace(list[0])
	switch {
	case len(inner) > 0 && inner[0] == '"':
		var encoded string
		if err := json.Unmarshal(inner, &encoded); err != nil {
			return nil, total, nil
		}
		var records []caseRecord
		if err := scraper.DecodeLenientJSON([]byte(encoded), &records); err != nil {
			return nil, total, nil
		}
		return records, total, nil
	case len(inner) > 0 && inner[0] == '{':
		var rec caseRecord
		if err := scraper.DecodeLenientJSON(inner, &rec); err != nil {
			return nil, total, nil
		}
		return []caseRecord{rec}, total, nil
	}
	return nil, total, nil
}

// ParseCaseStatus parses a case status response. The portal normally
// answers with a JSON envelope; older deployments answer with an HTML table.
func ParseCaseStatus(raw string) ([]models.CaseInfo, error) {
	if strings.Contains(strings.ToLower(raw), "<table") {
		return parseCaseStatusHTML(raw), nil
	}

	records, _, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	results := make([]models.CaseInfo, 0, len(records))
	for _, rec := range records {
		results = append(results, rec.toCaseInfo())
	}
	return results, nil
}

// Columns: Sr | Case No | Parties | Advocate | Filing | Reg | Status
func parseCaseStatusHTML(html string) []models.CaseInfo {
	results := []models.CaseInfo{}
	doc, err := scraper.ParseHTML(html)
	if err != nil {
		return results
	}

	for _, cols := range scraper.DataRows(scraper.FindTable(doc, "")) {
		if len(cols) < 4 {
			continue
		}

		info := models.CaseInfo{CaseNumber: scraper.CleanText(cols[1].Text())}
		if i := strings.Index(info.CaseNumber, "/"); i >= 0 {
			info.CaseType = info.CaseNumber[:i]
		}
		info.Petitioner, info.Respondent = scraper.PartiesFromCell(cols[2])
		if len(cols) > 4 {
			if d := scraper.ParseDate(cols[4].Text()); d != nil {
				info.FilingNumber = d.String()
			}
		}
		if len(cols) > 5 {
			info.RegistrationDate = scraper.ParseDate(cols[5].Text())
		}
		if len(cols) > 6 {
			info.Status = scraper.CleanText(cols[6].Text())
		}
		results = append(results, info)
	}
	return results
}

// ParseOrders parses the orders table. Rows without a parseable date are
// dropped.
func ParseOrders(html, baseURL string) []models.CaseOrder {
	results := []models.CaseOrder{}
	doc, err := scraper.ParseHTML(html)
	if err != nil {
		return results
	}

	for _, cols := range scraper.DataRows(scraper.FindTable(doc, "table#orderTable")) {
		if len(cols) < 5 {
			continue
		}
		date := scraper.ParseDate(cols[1].Text())
		if date == nil {
			continue
		}
		results = append(results, models.CaseOrder{
			OrderDate: *date,
			OrderType: scraper.CleanText(cols[2].Text()),
			Judge:     scraper.CleanText(cols[3].Text()),
			PDFURL:    scraper.ResolveURL(baseURL, scraper.LinkHref(cols[4])),
		})
	}
	return results
}

// ParseCauseList parses the per-bench cause list table. Relative links are
// resolved against the cases_qry directory.
func ParseCauseList(html, baseURL string) []models.CauseListPDF {
	results := []models.CauseListPDF{}
	doc, err := scraper.ParseHTML(html)
	if err != nil {
		return results
	}

	linkBase := ""
	if baseURL != "" {
		linkBase = strings.TrimSuffix(baseURL, "/") + "/cases_qry"
	}

	for _, cols := range scraper.DataRows(scraper.FindTable(doc, "table.causelistTbl")) {
		if len(cols) < 4 {
			continue
		}
		serial, err := strconv.Atoi(scraper.CleanText(cols[0].Text()))
		if err != nil {
			serial = 0
		}
		results = append(results, models.CauseListPDF{
			SerialNumber:  serial,
			Bench:         scraper.CleanText(cols[1].Text()),
			CauseListType: scraper.CleanText(cols[2].Text()),
			PDFURL:        scraper.ResolveURL(linkBase, scraper.LinkHref(cols[3])),
		})
	}
	return results
}

// ParseListing parses the "code~name#code~name" format used by the bench
// and case type enumerations. Placeholder entries are dropped and order is
// preserved.
func ParseListing(raw string) []models.Option {
	options := []models.Option{}
	for _, entry := range strings.Split(raw, "#") {
		code, name, ok := strings.Cut(scraper.StripBOM(entry), "~")
		if !ok {
			continue
		}
		code, name = scraper.StripBOM(code), scraper.StripBOM(name)
		if code == "" || code == "0" || name == "" || strings.Contains(strings.ToLower(name), "select") {
			continue
		}
		options = append(options, models.Option{Code: code, Name: name})
	}
	return options
}
