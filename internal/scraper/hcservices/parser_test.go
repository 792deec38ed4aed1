package hcservices

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func date(y int, m time.Month, d int) *models.Date {
	v := models.NewDate(y, m, d)
	return &v
}

func TestParseCaseStatusJSON(t *testing.T) {
	got, err := ParseCaseStatus(fixture(t, "case_status.json"))
	require.NoError(t, err)

	want := []models.CaseInfo{
		{
			CaseNumber:       "3/2024",
			CaseType:         "3",
			CNRNumber:        "DLHC010582482024",
			FilingNumber:     "203100000032024",
			RegistrationDate: date(2024, time.January, 8),
			Petitioner:       "ABC INDUSTRIES LTD",
			Respondent:       "STATE POLLUTION CONTROL BOARD & ORS.",
			Status:           models.StatusPending,
		},
		{
			CaseNumber:   "11/2024",
			CaseType:     "3",
			CNRNumber:    "DLHC010400092024",
			FilingNumber: "203100000112024",
			Petitioner:   "XYZ ENTERPRISES PVT LTD",
			Respondent:   "UNION OF INDIA",
			Status:       models.StatusDisposed,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCaseStatus mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCaseStatusEnvelopes(t *testing.T) {
	_, err := ParseCaseStatus(`{"con":"Invalid Captcha"}`)
	require.ErrorIs(t, err, scraper.ErrChallengeRejected)

	_, err = ParseCaseStatus("\ufeff" + `{"con":"","Error":"ERROR_VAL"}`)
	var serr *scraper.ServerError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, "ERROR_VAL", serr.Message)

	got, err := ParseCaseStatus(`{"con":[],"totRecords":"0","Error":""}`)
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = ParseCaseStatus("Session expired")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = ParseCaseStatus(`{"con":[{"cino":"KAHC010000012023","case_no2":"1","case_year":2023}],"totRecords":1}`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "KAHC010000012023", got[0].CNRNumber)
	require.Equal(t, "1/2023", got[0].CaseNumber)

	// control characters inside the inner strings
	got, err = ParseCaseStatus("{\"con\":[\"[{\\\"cino\\\":\\\"X1\\\",\\\"pet_name\\\":\\\"A\tB\\\"}]\"],\"totRecords\":1}")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "A\tB", got[0].Petitioner)
	require.Empty(t, got[0].CaseNumber)
}

func TestParseCaseStatusHTML(t *testing.T) {
	got, err := ParseCaseStatus(fixture(t, "case_status.html"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "WP(C)/12345/2024", got[0].CaseNumber)
	require.Equal(t, "WP(C)", got[0].CaseType)
	require.Equal(t, "ABC Industries Ltd", got[0].Petitioner)
	require.Equal(t, "Union of India", got[0].Respondent)
	require.Equal(t, "2024-01-15", got[0].FilingNumber)
	require.Equal(t, date(2024, time.January, 20), got[0].RegistrationDate)
	require.Equal(t, models.StatusPending, got[0].Status)

	require.Equal(t, "CRL.A./567/2023", got[1].CaseNumber)
	require.Equal(t, "State of Delhi", got[1].Petitioner)
	require.Equal(t, "XYZ Enterprises", got[1].Respondent)
	require.Nil(t, got[1].RegistrationDate)
	require.Equal(t, models.StatusDisposed, got[1].Status)

	got, err = ParseCaseStatus("<html><body>No results</body></html>")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestParseOrders(t *testing.T) {
	got := ParseOrders(fixture(t, "orders.html"), "https://hcservices.ecourts.gov.in")
	require.Len(t, got, 2)

	require.Equal(t, models.NewDate(2024, time.February, 15), got[0].OrderDate)
	require.Equal(t, "Judgment", got[0].OrderType)
	require.Contains(t, got[0].Judge, "Division Bench")
	require.Equal(t, "https://hcservices.ecourts.gov.in/hcservices/cases/display_pdf.php?filename=order_123.pdf", got[0].PDFURL)

	require.Equal(t, "Interim Order", got[1].OrderType)
	require.Equal(t, "https://hcservices.ecourts.gov.in/hcservices/cases/display_pdf.php?filename=order_99.pdf", got[1].PDFURL)

	require.Empty(t, ParseOrders("<html></html>", ""))
}

func TestParseCauseList(t *testing.T) {
	base := "https://hcservices.ecourts.gov.in/hcservices"
	got := ParseCauseList(fixture(t, "cause_list.html"), base)

	want := []models.CauseListPDF{
		{
			SerialNumber:  1,
			Bench:         "DIVISION BENCH - I HON'BLE THE CHIEF JUSTICE",
			CauseListType: "COMPLETE CAUSE LIST",
			PDFURL:        base + "/cases_qry/display_causelist_pdf.php?filename=cl_1.pdf&caseno=1",
		},
		{
			SerialNumber:  2,
			Bench:         "SINGLE BENCH - HON'BLE MR. JUSTICE B. SINGH",
			CauseListType: "SUPPLEMENTARY LIST",
			PDFURL:        base + "/cases_qry/display_causelist_pdf.php?filename=cl_2.pdf",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCauseList mismatch (-want +got):\n%s", diff)
	}

	require.Empty(t, ParseCauseList("<html></html>", base))
}

func TestParseCauseListNonNumericSerial(t *testing.T) {
	got := ParseCauseList(`<table><tr><th>h</th></tr><tr><td>*</td><td>B</td><td>T</td><td>none</td></tr></table>`, "")
	require.Len(t, got, 1)
	require.Zero(t, got[0].SerialNumber)
	require.Empty(t, got[0].PDFURL)
}

func TestParseListing(t *testing.T) {
	raw := "\ufeff0~Select Bench#1~Principal Bench at Delhi# 2 ~ Lucknow Bench #~Nameless#3~#garbage#4~select case type"
	want := []models.Option{
		{Code: "1", Name: "Principal Bench at Delhi"},
		{Code: "2", Name: "Lucknow Bench"},
	}
	if diff := cmp.Diff(want, ParseListing(raw)); diff != "" {
		t.Errorf("ParseListing mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, ParseListing(""))
}
