package judgments

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JustJay7/ecourts-fetcher/internal/captcha/captchatest"
	"github.com/JustJay7/ecourts-fetcher/internal/config"
	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestParseSearch(t *testing.T) {
	res := ParseSearch(fixture(t, "search.html"), "https://judgments.ecourts.gov.in", 1)
	require.Len(t, res.Items, 2)
	require.Equal(t, 45, res.TotalCount)
	require.True(t, res.HasNext)
	require.Equal(t, 2, res.PageSize)
	require.Equal(t, 23, res.TotalPages())

	j1 := res.Items[0]
	require.Equal(t, "ABC Industries vs Union of India", j1.Title)
	require.Equal(t, "W.P.(C) 1234/2023", j1.CaseNumber)
	require.Equal(t, "Delhi High Court", j1.CourtName)
	require.Equal(t, []string{"Mr. Justice A. Kumar", "Ms. Justice B. Rao"}, j1.Judges)
	require.Equal(t, models.DivisionBench, j1.BenchType)
	require.Equal(t, "2024-02-15", j1.JudgmentDate.String())
	require.Equal(t, "https://judgments.ecourts.gov.in/pdfsearch/files/judgment_001.pdf", j1.PDFURL)
	require.Equal(t, j1.PDFURL, j1.SourceURL)

	j2 := res.Items[1]
	require.Equal(t, "State vs XYZ Enterprises", j2.Title)
	require.Equal(t, models.SingleBench, j2.BenchType)
}

func TestParseSearchEmptyAndFallbacks(t *testing.T) {
	res := ParseSearch("<html></html>", "", 1)
	require.Empty(t, res.Items)
	require.Zero(t, res.TotalCount)
	require.False(t, res.HasNext)

	html := `<table>
		<tr><th>h</th></tr>
		<tr><td>1</td><td></td><td>No title here</td><td>Madras High Court</td><td></td><td>bad</td><td></td></tr>
	</table><span>page 1 of 7</span>`
	res = ParseSearch(html, "", 2)
	require.Len(t, res.Items, 1)
	require.Equal(t, 7, res.TotalCount)
	require.Equal(t, 2, res.Page)
	require.Empty(t, res.Items[0].Title)
	require.Equal(t, "No title here", res.Items[0].CaseNumber)
	require.Nil(t, res.Items[0].JudgmentDate)
	require.Equal(t, models.BenchType(""), res.Items[0].BenchType)

	res = ParseSearch(`<table><tr><th>h</th></tr><tr><td>1</td><td>2</td><td>3</td><td>4</td><td>5</td><td>6</td><td>7</td></tr></table>`, "", 1)
	require.Equal(t, 1, res.TotalCount)
}

// fakePortal validates the answer "good" and then serves results only to the
// session holding the issued token
type fakePortal struct {
	results string

	mu      sync.Mutex
	checks  []string
	queries []url.Values
	session int
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case r.URL.Path == "/pdfsearch/" && r.Method == http.MethodGet && r.URL.Query().Get("p") == "":
		p.session++
		http.SetCookie(w, &http.Cookie{Name: "JUDGMENTS", Value: fmt.Sprint(p.session), Path: "/"})
		fmt.Fprint(w, "<html>search</html>")
	case r.URL.Path == "/pdfsearch/vendor/securimage/securimage_show.php":
		w.Write([]byte("png"))
	case r.URL.Query().Get("p") == "pdf_search/checkCaptcha":
		raw, _ := io.ReadAll(r.Body)
		p.checks = append(p.checks, string(raw))
		form, _ := url.ParseQuery(string(raw))
		w.Header().Set("Content-Type", "text/html")
		switch form.Get("captcha") {
		case "good":
			c, _ := r.Cookie("JUDGMENTS")
			fmt.Fprintf(w, `{"captcha_status":"Y","app_token":"tok-%s"}`, c.Value)
		case "html":
			fmt.Fprint(w, "<html>oops</html>")
		default:
			fmt.Fprint(w, `{"captcha_status":"N","errormsg":"Invalid captcha"}`)
		}
	case r.URL.Query().Get("p") == "pdf_search/home":
		p.queries = append(p.queries, r.URL.Query())
		c, err := r.Cookie("JUDGMENTS")
		if err != nil || r.URL.Query().Get("app_token") != "tok-"+c.Value {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, p.results)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newClient(t *testing.T, srv *httptest.Server, solver *captchatest.Static) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.RequestDelay = 0
	cfg.RetryBackoff = 0
	cfg.RequestTimeout = 5 * time.Second
	cfg.MaxRetries = 1
	http := transport.New(cfg, logger.Nop())
	t.Cleanup(func() { http.Close() })
	return New(http, solver, 3, nil).WithBaseURL(srv.URL + "/pdfsearch")
}

func TestSearchTwoPhase(t *testing.T) {
	p := &fakePortal{results: fixture(t, "search.html")}
	srv := httptest.NewServer(p)
	defer srv.Close()

	c := newClient(t, srv, captchatest.NewStatic("good"))
	res, err := c.Search(context.Background(), Query{Text: "right to privacy", CourtType: CourtTypeSCR, ESCR: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, srv.URL+"/pdfsearch/files/judgment_001.pdf", res.Items[0].PDFURL)

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Equal(t, []string{
		"captcha=good&search_text=right+to+privacy&search_opt=PHRASE&escr_flag=&proximity=&sel_lang=&ajax_req=true&app_token=",
	}, p.checks)
	require.Len(t, p.queries, 1)
	q := p.queries[0]
	require.Equal(t, "right to privacy", q.Get("text"))
	require.Equal(t, "good", q.Get("captcha"))
	require.Equal(t, "3", q.Get("fcourt_type"))
	require.Equal(t, "Y", q.Get("escr_flag"))
	require.Equal(t, "tok-1", q.Get("app_token"))
}

func TestSearchRejected(t *testing.T) {
	for _, answer := range []string{"bad", "html"} {
		p := &fakePortal{}
		srv := httptest.NewServer(p)

		c := newClient(t, srv, captchatest.NewStatic(answer))
		_, err := c.Search(context.Background(), Query{Text: "tax"})
		require.ErrorIs(t, err, scraper.ErrChallengeRejected, answer)

		p.mu.Lock()
		require.Len(t, p.checks, 3, answer)
		require.Empty(t, p.queries, answer)
		require.Equal(t, 3, p.session, answer)
		p.mu.Unlock()
		srv.Close()
	}
}

func TestSearchValidation(t *testing.T) {
	c := New(nil, nil, 1, nil)
	_, err := c.Search(context.Background(), Query{})
	require.ErrorIs(t, err, scraper.ErrInvalidQuery)
	_, err = c.Search(context.Background(), Query{Text: "x", SearchOpt: "FUZZY"})
	require.ErrorIs(t, err, scraper.ErrInvalidQuery)
	_, err = c.Search(context.Background(), Query{Text: "x", CourtType: "9"})
	require.ErrorIs(t, err, scraper.ErrInvalidQuery)
}

func TestDownloadPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	c := newClient(t, srv, captchatest.NewStatic(""))
	j := &models.JudgmentResult{PDFURL: srv.URL + "/a.pdf"}
	require.NoError(t, c.DownloadPDF(context.Background(), j))
	require.Equal(t, []byte("%PDF-1.7"), j.PDFBytes)

	require.ErrorIs(t, c.DownloadPDF(context.Background(), &models.JudgmentResult{}), scraper.ErrNoPDF)
}
