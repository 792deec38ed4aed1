// Package hcservices talks to the High Court case status portal at
// hcservices.ecourts.gov.in. Queries are answered through AJAX POSTs that
// carry the CAPTCHA answer in the same form as the query.
package hcservices

import "strings"

// DefaultBaseURL is the live portal root
const DefaultBaseURL = "https://hcservices.ecourts.gov.in/hcservices"

// Endpoints holds every portal URL derived from one base
type Endpoints struct {
	Base        string
	MainPage    string
	Captcha     string
	IndexQuery  string
	ShowRecords string
	CaseTypes   string
	PDFDisplay  string
}

// NewEndpoints derives the portal URLs from base
func NewEndpoints(base string) Endpoints {
	base = strings.TrimSuffix(base, "/")
	index := base + "/cases_qry/index_qry.php"
	return Endpoints{
		Base:        base,
		MainPage:    base + "/main.php",
		Captcha:     base + "/securimage/securimage_show.php",
		IndexQuery:  index,
		ShowRecords: index + "?action_code=showRecords",
		CaseTypes:   index + "?action_code=fillCaseType",
		PDFDisplay:  base + "/cases/display_pdf.php",
	}
}

// Search type values understood by funShowRecords on the portal
const (
	searchByCaseNumber = "CScaseNumber"
	searchByParty      = "CSpartyName"
	searchOrders       = "COCaseNumber"
	searchCauseList    = "CLcauselist"
)

// Cause list flags
const (
	civilFlag    = "civ_t"
	criminalFlag = "cri_t"
)

func caseStatusForm(stateCode, bench, caseType, caseNumber, year, answer string) []string {
	return caseNumberForm(searchByCaseNumber, stateCode, bench, caseType, caseNumber, year, answer)
}

func ordersForm(stateCode, bench, caseType, caseNumber, year, answer string) []string {
	return caseNumberForm(searchOrders, stateCode, bench, caseType, caseNumber, year, answer)
}

func caseNumberForm(searchType, stateCode, bench, caseType, caseNumber, year, answer string) []string {
	return []string{
		"court_code", bench,
		"state_code", stateCode,
		"court_complex_code", bench,
		"caseStatusSearchType", searchType,
		"captcha", answer,
		"case_type", caseType,
		"case_no", caseNumber,
		"rgyear", year,
		"caseNoType", "new",
		"displayOldCaseNo", "NO",
	}
}

// rgyear is mandatory here; the portal answers ERROR_VAL without it
func partyForm(stateCode, bench, name, year, filter, answer string) []string {
	return []string{
		"court_code", bench,
		"state_code", stateCode,
		"court_complex_code", bench,
		"caseStatusSearchType", searchByParty,
		"captcha", answer,
		"f", filter,
		"petres_name", name,
		"rgyear", year,
	}
}

func causeListForm(stateCode, bench, flag, prevDays, date, answer string) []string {
	return []string{
		"action_code", "showCauseList",
		"flag", flag,
		"selprevdays", prevDays,
		"captcha", answer,
		"state_code", stateCode,
		"court_code", bench,
		"caseStatusSearchType", searchCauseList,
		"appFlag", "",
		"causelist_date", date,
	}
}

func benchForm(stateCode string) []string {
	return []string{
		"action_code", "fillHCBench",
		"state_code", stateCode,
		"appFlag", "web",
	}
}

func caseTypeForm(stateCode, bench string) []string {
	return []string{
		"court_code", bench,
		"state_code", stateCode,
	}
}
