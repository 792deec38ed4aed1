package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/JustJay7/ecourts-fetcher/internal/cache"
	"github.com/JustJay7/ecourts-fetcher/internal/captcha/captchatest"
	"github.com/JustJay7/ecourts-fetcher/internal/config"
	"github.com/JustJay7/ecourts-fetcher/internal/database"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/transport"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

const caseStatusJSON = `{"con":["[{\"cino\":\"DLHC010582482024\",\"case_no2\":\"12345\",\"case_type\":\"W.P.(C)\",\"case_year\":\"2024\",\"pet_name\":\"ABC LTD\",\"res_name\":\"UNION OF INDIA\",\"status_name\":\"Pending\",\"reg_date\":\"08-01-2024\"}]"],"totRecords":"1","Error":""}`

const ordersHTML = `<table id="orderTable">
<tr><th>Sr</th><th>Date</th><th>Type</th><th>Judge</th><th>View</th></tr>
<tr><td>1</td><td>15-02-2024</td><td>Judgment</td><td>A. Kumar</td><td><a href="/hcservices/cases/display_pdf.php?filename=o1.pdf">View</a></td></tr>
</table>`

const sciHTML = `<table>
<tr><td>1/2024</td><td>05-01-2024</td><td>A vs B</td><td>C.A. 1/2024</td><td><a href="/files/1.pdf">pdf</a></td></tr>
</table>`

// fakePortals serves the hcservices and sci endpoints. Every HC query POST
// is answered only when the CAPTCHA answer is "good".
type fakePortals struct {
	mu      sync.Mutex
	queries int
	orders  string
}

// SetOrders replaces the orders table served for COCaseNumber queries
func (p *fakePortals) SetOrders(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = html
}

func (p *fakePortals) ordersBody() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.orders == "" {
		return ordersHTML
	}
	return p.orders
}

func (p *fakePortals) Queries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries
}

func (p *fakePortals) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/hcservices/main.php":
		http.SetCookie(w, &http.Cookie{Name: "HCSESS", Value: "1", Path: "/"})
		io.WriteString(w, "<html></html>")
	case "/hcservices/securimage/securimage_show.php":
		w.Write([]byte("png"))
	case "/hcservices/cases/display_pdf.php":
		name := r.URL.Query().Get("filename")
		if name == "missing.pdf" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(w, "%PDF-1.4 "+name)
	case "/hcservices/cases_qry/index_qry.php":
		raw, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(raw))
		p.mu.Lock()
		p.queries++
		p.mu.Unlock()
		switch {
		case form.Get("action_code") == "fillHCBench":
			io.WriteString(w, "0~Select#1~Principal Bench at Delhi#")
		case r.URL.Query().Get("action_code") == "fillCaseType":
			io.WriteString(w, "134~W.P.(C)#")
		case form.Get("captcha") != "good":
			io.WriteString(w, "Invalid Captcha")
		case form.Get("caseStatusSearchType") == "COCaseNumber":
			io.WriteString(w, p.ordersBody())
		case form.Get("caseStatusSearchType") == "CSpartyName":
			io.WriteString(w, `{"Error":"ERROR_VAL"}`)
		default:
			io.WriteString(w, caseStatusJSON)
		}
	case "/judgments":
		io.WriteString(w, sciHTML)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	router  *gin.Engine
	portals *fakePortals
	store   *database.Store
	cache   *cache.BoundedCache
	cfg     *config.Config
}

func newTestEnv(t *testing.T, answer string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.RequestDelay = 0
	cfg.RetryBackoff = 0
	cfg.MaxRetries = 1
	cfg.RequestTimeout = 5 * time.Second
	cfg.ScraperTimeout = 10 * time.Second
	cfg.CaptchaDir = filepath.Join(t.TempDir(), "captchas")
	cfg.PDFDir = t.TempDir()
	cfg.MaxConcurrentScrapes = 2

	db, err := database.Initialize(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	portals := &fakePortals{}
	srv := httptest.NewServer(portals)
	t.Cleanup(srv.Close)

	clients := NewClients(cfg, captchatest.NewStatic(answer), logger.Nop())
	clients.HCServicesURL = srv.URL + "/hcservices"
	clients.SCIURL = srv.URL

	env := &testEnv{
		router:  gin.New(),
		portals: portals,
		store:   database.NewStore(db),
		cache:   cache.NewCache(100, time.Minute),
		cfg:     cfg,
	}
	SetupRoutes(env.router, env.store, env.cache, clients, logger.Nop(), cfg)
	return env
}

type apiResponse struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Kind      string          `json:"kind"`
	FromCache bool            `json:"fromCache"`
}

func (e *testEnv) do(t *testing.T, method, target, body string) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func TestHealthAndCourts(t *testing.T) {
	env := newTestEnv(t, "good")

	code, _ := env.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, code)

	code, resp := env.do(t, http.MethodGet, "/api/courts?type=supreme_court", "")
	require.Equal(t, http.StatusOK, code)
	var courts []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &courts))
	require.Len(t, courts, 1)
	require.Equal(t, "sci", courts[0]["code"])

	code, resp = env.do(t, http.MethodGet, "/api/courts/DELHI", "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(resp.Data), "Delhi High Court")

	code, resp = env.do(t, http.MethodGet, "/api/courts/atlantis", "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, kindUnknownCourt, resp.Kind)
}

func TestCaseStatusCachesAndLogs(t *testing.T) {
	env := newTestEnv(t, "good")
	target := "/api/courts/delhi/cases?case_type=134&number=12345&year=2024"

	code, resp := env.do(t, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, code, resp.Error)
	require.False(t, resp.FromCache)
	require.Contains(t, string(resp.Data), "Delhi High Court")
	require.Contains(t, string(resp.Data), "DLHC010582482024")

	code, resp = env.do(t, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.FromCache)
	require.Equal(t, 1, env.portals.Queries())

	logs, err := env.store.RecentQueries(context.Background(), "hcservices", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.True(t, logs[0].FromCache)
	require.Equal(t, "case_status", logs[1].Operation)
	require.Equal(t, 1, logs[1].ResultCount)

	cases, total, err := env.store.ListCases(context.Background(), 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "ABC LTD", cases[0].CaseInfo().Petitioner)

	code, resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/cases/%d", cases[0].ID), "")
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodGet, "/api/cases/9999", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		target string
		status int
		kind   string
	}{
		{"missing year", "good", "/api/courts/delhi/cases?case_type=134&number=1", http.StatusBadRequest, kindInvalidQuery},
		{"supreme court on hc portal", "good", "/api/courts/sci/cases?case_type=134&number=1&year=2024", http.StatusBadRequest, kindInvalidQuery},
		{"challenge rejected", "bad", "/api/courts/delhi/cases?case_type=134&number=1&year=2024", http.StatusServiceUnavailable, kindChallengeRejected},
		{"portal error", "good", "/api/courts/delhi/cases/party?name=Sharma&year=2024", http.StatusUnprocessableEntity, kindPortalError},
		{"bad cause list date", "good", "/api/courts/delhi/cause-list?date=09-03-2024", http.StatusBadRequest, kindInvalidQuery},
		{"sci without filters", "good", "/api/sci/judgments", http.StatusBadRequest, kindInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.answer)
			code, resp := env.do(t, http.MethodGet, tt.target, "")
			require.Equal(t, tt.status, code, resp.Error)
			require.False(t, resp.Success)
			require.Equal(t, tt.kind, resp.Kind)
		})
	}
}

func TestClassify(t *testing.T) {
	status, kind := classify(&transport.Error{Method: "GET", URL: "u", Attempts: 3, Err: &transport.StatusError{Code: 500}})
	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, kindTransport, kind)

	status, _ = classify(&scraper.ChallengeError{Attempts: 3})
	require.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = classify(fmt.Errorf("boom"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Empty(t, errorKind(nil))
}

func TestOrdersDownload(t *testing.T) {
	env := newTestEnv(t, "good")

	code, resp := env.do(t, http.MethodGet, "/api/courts/delhi/orders?case_type=134&number=12345&year=2024&download=true", "")
	require.Equal(t, http.StatusOK, code, resp.Error)

	var result struct {
		Orders []map[string]any `json:"orders"`
		Files  []string         `json:"files"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Len(t, result.Orders, 1)
	require.Len(t, result.Files, 1)
	data, err := os.ReadFile(result.Files[0])
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 o1.pdf", string(data))

	cases, _, err := env.store.ListCases(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	require.Len(t, cases[0].Orders, 1)
	require.True(t, cases[0].Orders[0].Downloaded)
	require.Equal(t, result.Files[0], cases[0].Orders[0].LocalPath)
}

func TestOrdersAttachToLookedUpCase(t *testing.T) {
	env := newTestEnv(t, "good")
	ctx := context.Background()

	code, resp := env.do(t, http.MethodGet, "/api/courts/delhi/cases?case_type=134&number=12345&year=2024", "")
	require.Equal(t, http.StatusOK, code, resp.Error)
	cases, _, err := env.store.ListCases(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	looked := cases[0]
	require.Equal(t, "12345/2024", looked.CaseNumber)

	code, resp = env.do(t, http.MethodGet, "/api/courts/delhi/orders?case_type=134&number=12345&year=2024", "")
	require.Equal(t, http.StatusOK, code, resp.Error)

	got, err := env.store.GetCase(ctx, looked.ID)
	require.NoError(t, err)
	require.Len(t, got.Orders, 1)

	// same number under another case type and year is a different case
	code, resp = env.do(t, http.MethodGet, "/api/courts/delhi/orders?case_type=27&number=12345&year=2019", "")
	require.Equal(t, http.StatusOK, code, resp.Error)

	cases, total, err := env.store.ListCases(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "12345/2019", cases[0].CaseNumber)
	require.Equal(t, "27", cases[0].CaseType)
	require.Len(t, cases[0].Orders, 1)

	got, err = env.store.GetCase(ctx, looked.ID)
	require.NoError(t, err)
	require.Len(t, got.Orders, 1)

	// the principal bench named explicitly is the same lookup
	code, resp = env.do(t, http.MethodGet, "/api/courts/delhi/orders?bench=1&case_type=134&number=12345&year=2024", "")
	require.Equal(t, http.StatusOK, code, resp.Error)
	got, err = env.store.GetCase(ctx, looked.ID)
	require.NoError(t, err)
	require.Len(t, got.Orders, 2)
}

func TestOrdersDownloadReportsFailures(t *testing.T) {
	env := newTestEnv(t, "good")
	env.portals.SetOrders(`<table id="orderTable">
<tr><th>Sr</th><th>Date</th><th>Type</th><th>Judge</th><th>View</th></tr>
<tr><td>1</td><td>15-02-2024</td><td>Judgment</td><td>A. Kumar</td><td><a href="/hcservices/cases/display_pdf.php?filename=o1.pdf">View</a></td></tr>
<tr><td>2</td><td>16-02-2024</td><td>Order</td><td>A. Kumar</td><td><a href="/hcservices/cases/display_pdf.php?filename=missing.pdf">View</a></td></tr>
</table>`)

	code, resp := env.do(t, http.MethodGet, "/api/courts/delhi/orders?case_type=134&number=12345&year=2024&download=true", "")
	require.Equal(t, http.StatusOK, code, resp.Error)

	var result ordersResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	require.Len(t, result.Orders, 2)
	require.Len(t, result.Files, 2)
	require.NotEmpty(t, result.Files[0])
	require.Empty(t, result.Files[1])
	require.Len(t, result.Failures, 1)
	require.Equal(t, 1, result.Failures[0].Index)
	require.Contains(t, result.Failures[0].PDFURL, "missing.pdf")

	cases, _, err := env.store.ListCases(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	rec, err := env.store.GetCase(context.Background(), cases[0].ID)
	require.NoError(t, err)
	require.Len(t, rec.Orders, 2)
	require.True(t, rec.Orders[0].Downloaded)
	require.False(t, rec.Orders[1].Downloaded)
}

func TestListings(t *testing.T) {
	env := newTestEnv(t, "good")

	code, resp := env.do(t, http.MethodGet, "/api/courts/delhi/benches", "")
	require.Equal(t, http.StatusOK, code, resp.Error)
	require.JSONEq(t, `[{"code":"1","name":"Principal Bench at Delhi"}]`, string(resp.Data))

	code, resp = env.do(t, http.MethodGet, "/api/courts/delhi/case-types", "")
	require.Equal(t, http.StatusOK, code, resp.Error)
	require.JSONEq(t, `[{"code":"134","name":"W.P.(C)"}]`, string(resp.Data))
}

func TestBulkCaseStatus(t *testing.T) {
	env := newTestEnv(t, "good")

	body := `{"queries":[
		{"case_type":"134","number":"1","year":"2024"},
		{"case_type":"134","number":"2","year":"24"},
		{"case_type":"134","number":"3","year":"2023"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/courts/delhi/cases/bulk", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Results []struct {
			Success bool   `json:"success"`
			Kind    string `json:"kind"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	require.True(t, resp.Results[0].Success)
	require.False(t, resp.Results[1].Success)
	require.Equal(t, kindInvalidQuery, resp.Results[1].Kind)
	require.True(t, resp.Results[2].Success)

	code, _ := env.do(t, http.MethodPost, "/api/courts/delhi/cases/bulk", `{"queries":[]}`)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestSCIJudgments(t *testing.T) {
	env := newTestEnv(t, "good")

	code, resp := env.do(t, http.MethodGet, "/api/sci/judgments?year=2024&month=1", "")
	require.Equal(t, http.StatusOK, code, resp.Error)
	require.Contains(t, string(resp.Data), "Supreme Court of India")

	code, resp = env.do(t, http.MethodGet, "/api/sci/judgments?party=ab", "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, kindInvalidQuery, resp.Kind)
}

func TestCaptchaEndpoints(t *testing.T) {
	env := newTestEnv(t, "good")
	id := "1b4e28ba-2fa1-41d2-883f-0016d3cca427"
	require.NoError(t, os.MkdirAll(env.cfg.CaptchaDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.cfg.CaptchaDir, id+".png"), []byte("png"), 0644))

	code, resp := env.do(t, http.MethodGet, "/api/captcha", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `["`+id+`"]`, string(resp.Data))

	req := httptest.NewRequest(http.MethodGet, "/api/captcha/"+id, nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "png", w.Body.String())

	code, _ = env.do(t, http.MethodPost, "/api/captcha/"+id+"/solve", `{"solution":" x7k2 "}`)
	require.Equal(t, http.StatusOK, code)
	answer, err := os.ReadFile(filepath.Join(env.cfg.CaptchaDir, id+".txt"))
	require.NoError(t, err)
	require.Equal(t, "x7k2", string(answer))

	code, _ = env.do(t, http.MethodPost, "/api/captcha/not-an-id/solve", `{"solution":"x"}`)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = env.do(t, http.MethodGet, "/api/captcha/not-an-id", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestRateLimit(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	require.True(t, rl.allow("1.1.1.1"))
	require.True(t, rl.allow("1.1.1.1"))
	require.False(t, rl.allow("1.1.1.1"))
	require.True(t, rl.allow("2.2.2.2"))

	now = now.Add(30 * time.Second)
	require.True(t, rl.allow("1.1.1.1"))

	env := newTestEnv(t, "good")
	env.cfg.APIRateLimit = 1
	router := gin.New()
	SetupRoutes(router, env.store, env.cache, NewClients(env.cfg, nil, logger.Nop()), logger.Nop(), env.cfg)
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courts", nil))
		require.Equal(t, want, w.Code, i)
	}
}
