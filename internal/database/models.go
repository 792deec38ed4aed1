package database

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
)

// QueryLog records one portal operation issued through the API
type QueryLog struct {
	gorm.Model
	Portal       string    `json:"portal"`
	Operation    string    `json:"operation"`
	CourtCode    string    `json:"court_code"`
	Params       string    `json:"params" gorm:"type:text"`
	Success      bool      `json:"success"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ResultCount  int       `json:"result_count"`
	FromCache    bool      `json:"from_cache"`
	DurationMS   int64     `json:"duration_ms"`
	QueryTime    time.Time `json:"query_time"`
	IPAddress    string    `json:"ip_address"`
}

// CaseRef is the bench, case type code, number and year a case was looked
// up by. The portal reports case types by name, so stored results are
// matched on the lookup rather than on the parsed fields.
type CaseRef struct {
	Bench      string
	CaseType   string
	CaseNumber string
	Year       string
}

// Key is the normalised form stored in CaseRecord.LookupKey
func (r CaseRef) Key() string {
	parts := []string{r.Bench, r.CaseType, r.CaseNumber, r.Year}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "/")
}

// CaseRecord is a stored case status result
type CaseRecord struct {
	gorm.Model
	QueryLogID         uint          `json:"query_log_id"`
	CourtCode          string        `json:"court_code"`
	CourtName          string        `json:"court_name"`
	LookupKey          string        `json:"lookup_key,omitempty"`
	CaseNumber         string        `json:"case_number" gorm:"index"`
	CaseType           string        `json:"case_type"`
	CNRNumber          string        `json:"cnr_number" gorm:"index"`
	FilingNumber       string        `json:"filing_number"`
	RegistrationNumber string        `json:"registration_number"`
	RegistrationDate   *time.Time    `json:"registration_date"`
	NextHearing        *time.Time    `json:"next_hearing"`
	Status             string        `json:"status"`
	Judges             string        `json:"judges"`
	Parties            []Party       `json:"parties" gorm:"foreignKey:CaseRecordID"`
	Orders             []OrderRecord `json:"orders" gorm:"foreignKey:CaseRecordID"`
}

// Party type values
const (
	Petitioner = "petitioner"
	Respondent = "respondent"
)

type Party struct {
	gorm.Model
	CaseRecordID uint   `json:"case_record_id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
}

// OrderRecord is a stored court order
type OrderRecord struct {
	gorm.Model
	CaseRecordID uint      `json:"case_record_id"`
	OrderDate    time.Time `json:"order_date"`
	OrderType    string    `json:"order_type"`
	JudgeName    string    `json:"judge_name"`
	PDFLink      string    `json:"pdf_link"`
	Downloaded   bool      `json:"downloaded"`
	LocalPath    string    `json:"local_path"`
}

func (QueryLog) TableName() string {
	return "query_logs"
}

func (CaseRecord) TableName() string {
	return "case_records"
}

func (Party) TableName() string {
	return "parties"
}

func (OrderRecord) TableName() string {
	return "orders"
}

const judgeSeparator = "; "

// NewCaseRecord converts a portal result for storage
func NewCaseRecord(courtCode string, info models.CaseInfo) CaseRecord {
	rec := CaseRecord{
		CourtCode:          courtCode,
		CourtName:          info.CourtName,
		CaseNumber:         info.CaseNumber,
		CaseType:           info.CaseType,
		CNRNumber:          info.CNRNumber,
		FilingNumber:       info.FilingNumber,
		RegistrationNumber: info.RegistrationNumber,
		RegistrationDate:   timeOf(info.RegistrationDate),
		NextHearing:        timeOf(info.NextHearingDate),
		Status:             info.Status,
		Judges:             strings.Join(info.Judges, judgeSeparator),
	}
	if info.Petitioner != "" {
		rec.Parties = append(rec.Parties, Party{Name: info.Petitioner, Type: Petitioner})
	}
	if info.Respondent != "" {
		rec.Parties = append(rec.Parties, Party{Name: info.Respondent, Type: Respondent})
	}
	return rec
}

// CaseInfo converts the record back to the portal shape
func (r CaseRecord) CaseInfo() models.CaseInfo {
	info := models.CaseInfo{
		CaseNumber:         r.CaseNumber,
		CaseType:           r.CaseType,
		CNRNumber:          r.CNRNumber,
		FilingNumber:       r.FilingNumber,
		RegistrationNumber: r.RegistrationNumber,
		RegistrationDate:   dateOf(r.RegistrationDate),
		NextHearingDate:    dateOf(r.NextHearing),
		Status:             r.Status,
		CourtName:          r.CourtName,
		Judges:             []string{},
	}
	if r.Judges != "" {
		info.Judges = strings.Split(r.Judges, judgeSeparator)
	}
	for _, p := range r.Parties {
		switch p.Type {
		case Petitioner:
			info.Petitioner = p.Name
		case Respondent:
			info.Respondent = p.Name
		}
	}
	return info
}

// NewOrderRecord converts a portal order for storage
func NewOrderRecord(order models.CaseOrder) OrderRecord {
	return OrderRecord{
		OrderDate: order.OrderDate.Time,
		OrderType: order.OrderType,
		JudgeName: order.Judge,
		PDFLink:   order.PDFURL,
	}
}

func timeOf(d *models.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func dateOf(t *time.Time) *models.Date {
	if t == nil {
		return nil
	}
	d := models.DateOf(*t)
	return &d
}
