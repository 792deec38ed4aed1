package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CourtType classifies a court in the registry
type CourtType string

const (
	SupremeCourt  CourtType = "supreme_court"
	HighCourt     CourtType = "high_court"
	DistrictCourt CourtType = "district_court"
	Tribunal      CourtType = "tribunal"
)

// Court is an immutable registry entry
type Court struct {
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	StateCode string    `json:"state_code"`
	Type      CourtType `json:"court_type"`
	Bench     string    `json:"bench,omitempty"`
}

// Slug is the URL-safe form of the court name
func (c Court) Slug() string {
	s := strings.ToLower(c.Name)
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), "-")
}

// Case status values reported by the portals. An empty status means unknown.
const (
	StatusPending  = "Pending"
	StatusDisposed = "Disposed"
)

// CaseInfo describes one matched case
type CaseInfo struct {
	CaseNumber         string   `json:"case_number"`
	CaseType           string   `json:"case_type"`
	CNRNumber          string   `json:"cnr_number"`
	FilingNumber       string   `json:"filing_number"`
	RegistrationNumber string   `json:"registration_number"`
	RegistrationDate   *Date    `json:"registration_date"`
	Petitioner         string   `json:"petitioner"`
	Respondent         string   `json:"respondent"`
	Status             string   `json:"status"`
	CourtName          string   `json:"court_name"`
	Judges             []string `json:"judges"`
	NextHearingDate    *Date    `json:"next_hearing_date"`
}

// CaseOrder is one order or judgment issued in a case
type CaseOrder struct {
	OrderDate Date   `json:"order_date"`
	OrderType string `json:"order_type"`
	Judge     string `json:"judge"`
	PDFURL    string `json:"pdf_url"`
	PDFBytes  []byte `json:"-"`
	OrderText string `json:"order_text,omitempty"`
}

// CauseListPDF points at one bench's cause list for a day
type CauseListPDF struct {
	SerialNumber  int    `json:"serial_number"`
	Bench         string `json:"bench"`
	CauseListType string `json:"cause_list_type"`
	PDFURL        string `json:"pdf_url"`
	PDFBytes      []byte `json:"-"`
}

// BenchType is derived from the number of judges on a judgment
type BenchType string

const (
	SingleBench   BenchType = "Single Bench"
	DivisionBench BenchType = "Division Bench"
	FullBench     BenchType = "Full Bench"
)

// BenchTypeFor maps a judge count to a bench type; zero judges yields ""
func BenchTypeFor(judges int) BenchType {
	switch {
	case judges >= 3:
		return FullBench
	case judges == 2:
		return DivisionBench
	case judges == 1:
		return SingleBench
	}
	return ""
}

// JudgmentResult is one hit from a judgment search
type JudgmentResult struct {
	Title        string            `json:"title"`
	CourtName    string            `json:"court_name"`
	CaseNumber   string            `json:"case_number"`
	JudgmentDate *Date             `json:"judgment_date"`
	Judges       []string          `json:"judges"`
	PDFURL       string            `json:"pdf_url"`
	PDFBytes     []byte            `json:"-"`
	Citation     string            `json:"citation"`
	BenchType    BenchType         `json:"bench_type"`
	SourceURL    string            `json:"source_url"`
	SourceID     string            `json:"source_id"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Option is a single code/name pair from a bench or case type listing
type Option struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SearchResult is a page of records of one kind
type SearchResult[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	HasNext    bool `json:"has_next"`
}

// TotalPages is ceil(TotalCount/PageSize), or 0 when the page size is 0
func (r SearchResult[T]) TotalPages() int {
	if r.PageSize <= 0 || r.TotalCount <= 0 {
		return 0
	}
	return (r.TotalCount + r.PageSize - 1) / r.PageSize
}

func (r SearchResult[T]) MarshalJSON() ([]byte, error) {
	items := r.Items
	if items == nil {
		items = []T{}
	}
	return json.Marshal(struct {
		Items      []T  `json:"items"`
		TotalCount int  `json:"total_count"`
		Page       int  `json:"page"`
		PageSize   int  `json:"page_size"`
		HasNext    bool `json:"has_next"`
		TotalPages int  `json:"total_pages"`
	}{items, r.TotalCount, r.Page, r.PageSize, r.HasNext, r.TotalPages()})
}

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day
type Date struct {
	time.Time
}

// NewDate builds a Date in UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Equal reports whether both values name the same calendar day
func (d Date) Equal(o Date) bool {
	return d.Year() == o.Year() && d.YearDay() == o.YearDay()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	d.Time = t
	return nil
}
