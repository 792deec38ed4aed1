package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JustJay7/ecourts-fetcher/internal/cache"
	"github.com/JustJay7/ecourts-fetcher/internal/captcha"
	"github.com/JustJay7/ecourts-fetcher/internal/config"
	"github.com/JustJay7/ecourts-fetcher/internal/courts"
	"github.com/JustJay7/ecourts-fetcher/internal/database"
	"github.com/JustJay7/ecourts-fetcher/internal/models"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/hcservices"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/judgments"
	"github.com/JustJay7/ecourts-fetcher/internal/scraper/sci"
	"github.com/JustJay7/ecourts-fetcher/pkg/logger"
)

// Portal names used in the query log
const (
	portalHCServices = "hcservices"
	portalJudgments  = "judgments"
	portalSCI        = "sci"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	store   *database.Store
	cache   cache.Cache
	clients *Clients
	drop    *captcha.FileDropSolver
	logger  *logger.Logger
	cfg     *config.Config
	sem     chan struct{}
	now     func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(store *database.Store, cache cache.Cache, clients *Clients, logger *logger.Logger, cfg *config.Config) *Handlers {
	return &Handlers{
		store:   store,
		cache:   cache,
		clients: clients,
		drop:    captcha.NewFileDropSolver(cfg.CaptchaDir, cfg.CaptchaWait, logger),
		logger:  logger,
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.MaxConcurrentScrapes),
		now:     time.Now,
	}
}

// operation describes one logged, optionally cached portal call
type operation[T any] struct {
	portal   string
	name     string
	court    string
	params   any
	cacheKey string
	count    func(T) int
	save     func(ctx context.Context, logID uint, result T)
}

// serve answers from the cache when it can, otherwise fetches, logs the
// query and writes the response
func serve[T any](h *Handlers, c *gin.Context, op operation[T], fetch func(ctx context.Context) (T, error)) {
	start := h.now()
	ip := c.ClientIP()

	if op.cacheKey != "" {
		if cached, ok := cache.GetAs[T](h.cache, op.cacheKey); ok {
			h.logger.Info("Cache hit", "key", op.cacheKey)
			h.record(ip, op.portal, op.name, op.court, op.params, op.countOf(cached), true, start, nil)
			c.JSON(http.StatusOK, gin.H{
				"success":   true,
				"data":      cached,
				"fromCache": true,
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ScraperTimeout)
	defer cancel()

	result, err := fetch(ctx)
	entry := h.record(ip, op.portal, op.name, op.court, op.params, op.countOf(result), false, start, err)
	if err != nil {
		h.logger.Warn("Portal operation failed", "portal", op.portal, "operation", op.name, "error", err)
		writeError(c, err)
		return
	}

	if op.save != nil && entry != nil {
		op.save(context.WithoutCancel(ctx), entry.ID, result)
	}
	if op.cacheKey != "" {
		h.cache.Set(op.cacheKey, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"data":      result,
		"fromCache": false,
	})
}

func (op operation[T]) countOf(result T) int {
	if op.count != nil {
		return op.count(result)
	}
	if v := reflect.ValueOf(result); v.Kind() == reflect.Slice {
		return v.Len()
	}
	return 0
}

// record writes a query log entry. Failures to log never fail the request.
func (h *Handlers) record(ip, portal, name, court string, params any, count int, fromCache bool, start time.Time, err error) *database.QueryLog {
	raw, _ := json.Marshal(params)
	entry := &database.QueryLog{
		Portal:      portal,
		Operation:   name,
		CourtCode:   court,
		Params:      string(raw),
		Success:     err == nil,
		ResultCount: count,
		FromCache:   fromCache,
		DurationMS:  h.now().Sub(start).Milliseconds(),
		QueryTime:   start,
		IPAddress:   ip,
	}
	if err != nil {
		entry.ErrorKind = errorKind(err)
		entry.ErrorMessage = err.Error()
	}
	if err := h.store.LogQuery(context.Background(), entry); err != nil {
		h.logger.Error("Failed to save query log", "error", err)
		return nil
	}
	return entry
}

func (h *Handlers) court(c *gin.Context) (models.Court, error) {
	code := c.Param("code")
	court, ok := courts.Get(code)
	if !ok {
		return models.Court{}, fmt.Errorf("%w: %q", errUnknownCourt, code)
	}
	return court, nil
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	dbHealthy := h.store.Ping(c.Request.Context()) == nil

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": dbHealthy,
		"cache":    h.cache.Stats(),
		"time":     h.now().Unix(),
	})
}

// ListCourts returns the registry, optionally filtered by ?type=
func (h *Handlers) ListCourts(c *gin.Context) {
	want := models.CourtType(c.Query("type"))
	out := []models.Court{}
	for _, court := range courts.All() {
		if want == "" || court.Type == want {
			out = append(out, court)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
	})
}

// GetCourt returns one registry entry
func (h *Handlers) GetCourt(c *gin.Context) {
	court, err := h.court(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    court,
	})
}

// ListBenches enumerates the benches of a High Court
func (h *Handlers) ListBenches(c *gin.Context) {
	court, err := h.court(c)
	if err != nil {
		writeError(c, err)
		return
	}
	serve(h, c, operation[[]models.Option]{
		portal:   portalHCServices,
		name:     "benches",
		court:    court.Code,
		cacheKey: cache.GenerateCacheKey("benches", court.Code),
	}, func(ctx context.Context) ([]models.Option, error) {
		client, done := h.clients.HCServices()
		defer done()
		return client.ListBenches(ctx, court)
	})
}

// ListCaseTypes enumerates the case types of a bench, ?bench= defaulting to
// the principal bench
func (h *Handlers) ListCaseTypes(c *gin.Context) {
	court, err := h.court(c)
	if err != nil {
		writeError(c, err)
		return
	}
	bench := c.DefaultQuery("bench", hcservices.DefaultBench)
	serve(h, c, operation[[]models.Option]{
		portal:   portalHCServices,
		name:     "case_types",
		court:    court.Code,
		params:   gin.H{"bench": bench},
		cacheKey: cache.GenerateCacheKey("case_types", court.Code, bench),
	}, func(ctx context.Context) ([]models.Option, error) {
		client, done := h.clients.HCServices()
		defer done()
		return client.ListCaseTypes(ctx, court, bench)
	})
}

type caseRequest struct {
	Bench      string `form:"bench" json:"bench"`
	CaseType   string `form:"case_type" json:"case_type"`
	CaseNumber string `form:"number" json:"number"`
	Year       string `form:"year" json:"year"`
}

func (r caseRequest) query() hcservices.CaseQuery {
	return hcservices.CaseQuery{
		Bench:      r.Bench,
		CaseType:   r.CaseType,
		CaseNumber: r.CaseNumber,
		Year:       r.Year,
	}
}

// ref identifies the lookup in the store; an empty bench is the principal bench
func (r caseRequest) ref() database.CaseRef {
	bench := strings.TrimSpace(r.Bench)
	if bench == "" {
		bench = hcservices.DefaultBench
	}
	return database.CaseRef{Bench: bench, CaseType: r.CaseType, CaseNumber: r.CaseNumber, Year: r.Year}
}

func (h *Handlers) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", scraper.ErrInvalidQuery, err))
		return false
	}
	return true
}

func (h *Handlers) saveCases(courtCode string) func(context.Context, uint, []models.CaseInfo) {
	return func(ctx context.Context, logID uint, cases []models.CaseInfo) {
		if _, err := h.store.SaveCases(ctx, logID, courtCode, cases); err != nil {
			h.logger.Error("Failed to save case info", "error", err)
		}
	}
}

func (h *Handlers) saveLookup(courtCode string, ref database.CaseRef) func(context.Context, uint, []models.CaseInfo) {
	return func(ctx context.Context, logID uint, cases []models.CaseInfo) {
		if _, err := h.store.SaveCaseLookup(ctx, logID, courtCode, ref, cases); err != nil {
			h.logger.Error("Failed to save case info", "error", err)
		}
	}
}

// CaseStatus looks a case up by type, number and year
func (h *Handlers) CaseStatus(c *gin.Context) {
	court, err := h.court(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req caseRequest
	if !h.bindQuery(c, &req) {
		return
	}
	q := req.query()
	serve(h, c, operation[[]models.CaseInfo]{
		portal:   portalHCServices,
		name:     "case_status",
		court:    court.Code,
		params:   req,
		cacheKey: cache.GenerateCacheKey("case", court.Code, q.Bench, q.CaseType, q.CaseNumber, q.Year),
		save:     h.saveLookup(court.Code, req.ref()),
	}, func(ctx context.Context) ([]models.CaseInfo, error) {
		client, done := h.clients.HCServices()
		defer done()
		return client.CaseStatus(ctx, court, q)
	})
}

// CaseStatusByParty searches by party name
func (h *Handlers) CaseStatusByParty(c *gin.Context) {
	court, err := h.court(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req struct {
		Bench  string `form:"bench" json:"bench"`
		Name   string `form:"name" json:"name"`
		Year   string `form:"year" json:"year"`
		Status string `form:"status" json:"status"`
	}
	if !h.bindQuery(c, &req) {
		return
	}
	q := hcservices.PartyQuery{Bench: req.Bench, PartyName: req.Name, Year: req.Year, StatusFilter: req.Status}
	serve(h, c, operation[[]models.CaseInfo]{
		portal:   portalHCServices,
		name:     "case_status_by_party",
		court:    court.Code,
		params:   req,
		cacheKey: cache.GenerateCacheKey("party", court.Code, q.Bench, q.PartyName, q.Year, q.StatusFilter),
		save:     h.saveCases(court.Code),
	}, func(ctx context.Context) ([]models.CaseInfo, error) {
		client, done := h.clients.HCServices()
		defer done()
		return client.CaseStatusByParty(ctx, court, q)
	})
}

// ordersResult lists the orders of a case. With download set, Files[i] is
// where Orders[i] was saved and Failures names the PDFs that could not be
// fetched.
type ordersResult struct {
	Orders   []models.CaseOrder        `json:"orders"`
	Files    []string                  `json:"files,omitempty"`
	Failures []scraper.DownloadFailure `json:"failures,omitempty"`
}

// CourtOrders lists the orders of a case; ?download=true also saves their
// PDFs under the configured PDF directory
func (h *Handlers) CourtOrders(c *gin.Context) {
	court, err := h.court(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req struct {
		caseRequest
		Download bool `form:"download" json:"download"`
	}
	if !h.bindQuery(c, &req) {
		return
	}
	q := req.query()

	op := operation[ordersResult]{
		portal: portalHCServices,
		name:   "court_orders",
		court:  court.Code,
		params: req,
		count:  func(r ordersResult) int { return len(r.Orders) },
		save: func(ctx context.Context, logID uint, r ordersResult) {
			rec, err := h.store.SaveOrders(ctx, logID, court.Code, req.ref(), r.Orders)
			if err != nil {
				h.logger.Error("Failed to save orders", "error", err)
				return
			}
			for i, path := range r.Files {
				if path == "" || i >= len(rec.Orders) {
					continue
				}
				if err := h.store.MarkDownloaded(ctx, rec.Orders[i].ID, path); err != nil {
					h.logger.Error("Failed to mark order downloaded", "error", err)
				}
			}
		},
	}
	if !req.Download {
		op.cacheKey = cache.GenerateCacheKey("orders", court.Code, q.Bench, q.CaseType, q.CaseNumber, q.Year)
	}

	serve(h, c, op, func(ctx context.Context) (ordersResult, error) {
		client, done := h.clients.HCServices()
		defer done()
		orders, err := client.CourtOrders(ctx, court, q)
		if err != nil || !req.Download {
			return ordersResult{Orders: orders}, err
		}

		downloader, closeDownloader := h.clients.Downloader()
		defer closeDownloader()
		got, err := downloader.DownloadOrders(ctx, q.CaseNumber, orders, true)
		return ordersResult{Orders: orders, Files: got.Paths, Failures: got.Failures}, err
	})
}

// CauseList returns the cause list PDFs for ?date=YYYY-MM-DD (default
// today); ?criminal=true selects the criminal list
func (h *Handlers) CauseList(c *gin.Context) {
	court, err := h.court(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req struct {
		Bench    string `form:"bench" json:"bench"`
		Date     string `form:"date" json:"date"`
		Criminal bool   `form:"criminal" json:"criminal"`
	}
	if !h.bindQuery(c, &req) {
		return
	}
	q := hcservices.CauseListQuery{Bench: req.Bench, Criminal: req.Criminal}
	if req.Date != "" {
		q.Date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(c, fmt.Errorf("%w: date must be YYYY-MM-DD", scraper.ErrInvalidQuery))
			return
		}
	}
	serve(h, c, operation[[]models.CauseListPDF]{
		portal:   portalHCServices,
		name:     "cause_list",
		court:    court.Code,
		params:   req,
		cacheKey: cache.GenerateCacheKey("cause_list", court.Code, req.Bench, req.Date, strconv.FormatBool(req.Criminal)),
	}, func(ctx context.Context) ([]models.CauseListPDF, error) {
		client, done := h.clients.HCServices()
		defer done()
		return client.CauseList(ctx, court, q)
	})
}

// BulkCaseStatus runs up to ten case status lookups, each in its own portal
// session, at most MaxConcurrentScrapes at a time
func (h *Handlers) BulkCaseStatus(c *gin.Context) {
	court, err := h.court(c)
	if err != nil {
		writeError(c, err)
		return
	}
	var req struct {
		Queries []caseRequest `json:"queries" binding:"required,min=1,max=10"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", scraper.ErrInvalidQuery, err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.ScraperTimeout*time.Duration(len(req.Queries)))
	defer cancel()

	ip := c.ClientIP()
	results := make([]gin.H, len(req.Queries))
	var wg sync.WaitGroup
	for i, r := range req.Queries {
		wg.Add(1)
		go func(i int, r caseRequest) {
			defer wg.Done()
			cases, err := h.bulkOne(ctx, ip, court, r)
			data := gin.H{"query": r}
			if err != nil {
				data["success"] = false
				data["error"] = err.Error()
				data["kind"] = errorKind(err)
			} else {
				data["success"] = true
				data["data"] = cases
			}
			results[i] = data
		}(i, r)
	}
	wg.Wait()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}

func (h *Handlers) bulkOne(ctx context.Context, ip string, court models.Court, r caseRequest) ([]models.CaseInfo, error) {
	select {
	case h.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-h.sem }()

	start := h.now()
	client, done := h.clients.HCServices()
	defer done()

	cases, err := client.CaseStatus(ctx, court, r.query())
	entry := h.record(ip, portalHCServices, "bulk_case_status", court.Code, r, len(cases), false, start, err)
	if err == nil && entry != nil {
		h.saveLookup(court.Code, r.ref())(context.WithoutCancel(ctx), entry.ID, cases)
	}
	return cases, err
}

// SearchJudgments runs a keyword search on the judgment portal
func (h *Handlers) SearchJudgments(c *gin.Context) {
	var req struct {
		Text      string `form:"q" json:"q"`
		SearchOpt string `form:"opt" json:"opt"`
		CourtType string `form:"court_type" json:"court_type"`
		ESCR      bool   `form:"escr" json:"escr"`
	}
	if !h.bindQuery(c, &req) {
		return
	}
	q := judgments.Query{Text: req.Text, SearchOpt: req.SearchOpt, CourtType: req.CourtType, ESCR: req.ESCR}
	serve(h, c, operation[models.SearchResult[models.JudgmentResult]]{
		portal:   portalJudgments,
		name:     "search",
		params:   req,
		cacheKey: cache.GenerateCacheKey("judgments", q.Text, q.SearchOpt, q.CourtType, strconv.FormatBool(q.ESCR)),
		count:    func(r models.SearchResult[models.JudgmentResult]) int { return len(r.Items) },
	}, func(ctx context.Context) (models.SearchResult[models.JudgmentResult], error) {
		client, done := h.clients.Judgments()
		defer done()
		return client.Search(ctx, q)
	})
}

// SCIJudgments lists Supreme Court judgments by ?year= (and optional
// ?month=) or by ?party=
func (h *Handlers) SCIJudgments(c *gin.Context) {
	var req struct {
		Year  int    `form:"year" json:"year,omitempty"`
		Month int    `form:"month" json:"month,omitempty"`
		Party string `form:"party" json:"party,omitempty"`
	}
	if !h.bindQuery(c, &req) {
		return
	}
	if req.Party == "" && req.Year == 0 {
		writeError(c, fmt.Errorf("%w: year or party is required", scraper.ErrInvalidQuery))
		return
	}

	op := operation[[]models.JudgmentResult]{
		portal: portalSCI,
		court:  courts.SupremeCourt.Code,
		params: req,
	}
	if req.Party != "" {
		op.name = "search_by_party"
		op.cacheKey = cache.GenerateCacheKey("sci_party", req.Party)
	} else {
		op.name = "search_by_year"
		op.cacheKey = cache.GenerateCacheKey("sci_year", strconv.Itoa(req.Year), strconv.Itoa(req.Month))
	}

	serve(h, c, op, func(ctx context.Context) ([]models.JudgmentResult, error) {
		client, done := h.clients.SCI()
		defer done()
		if req.Party != "" {
			return client.SearchByParty(ctx, sci.PartyQuery{Name: req.Party})
		}
		return client.SearchByYear(ctx, req.Year, time.Month(req.Month))
	})
}

// ListCases returns stored case records
func (h *Handlers) ListCases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	cases, total, err := h.store.ListCases(c.Request.Context(), page, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cases,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetCase returns one stored case record
func (h *Handlers) GetCase(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid case ID",
		})
		return
	}

	rec, err := h.store.GetCase(c.Request.Context(), uint(id))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Case not found",
		})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rec,
	})
}

// ListQueries returns recent query log entries, ?portal= to filter
func (h *Handlers) ListQueries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	logs, err := h.store.RecentQueries(c.Request.Context(), c.Query("portal"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
	})
}

// CacheStats returns cache statistics
func (h *Handlers) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.cache.Stats(),
	})
}

// ClearCache drops every cached result
func (h *Handlers) ClearCache(c *gin.Context) {
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// PendingCaptchas lists challenges waiting for an operator
func (h *Handlers) PendingCaptchas(c *gin.Context) {
	ids, err := h.drop.Pending()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ids,
	})
}

// GetCaptcha returns CAPTCHA image for manual solving
func (h *Handlers) GetCaptcha(c *gin.Context) {
	data, err := h.drop.Image(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "CAPTCHA not found",
		})
		return
	}

	c.Data(http.StatusOK, "image/png", data)
}

// SolveCaptcha accepts manual CAPTCHA solution
func (h *Handlers) SolveCaptcha(c *gin.Context) {
	var req struct {
		Solution string `json:"solution" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request",
		})
		return
	}

	err := h.drop.Answer(c.Param("id"), req.Solution)
	switch {
	case errors.Is(err, captcha.ErrUnknownChallenge):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "CAPTCHA not found",
		})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "CAPTCHA solution saved",
	})
}
