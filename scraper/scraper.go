package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-adidas/config"
	"github.com/aluiziolira/go-scrape-adidas/models"
	"github.com/aluiziolira/go-scrape-adidas/parser"
	"github.com/aluiziolira/go-scrape-adidas/pipeline"
	"github.com/gocolly/colly/v2"
)

// Traversal stages, carried in each request's colly context. A response is
// dispatched to its stage handler, which extends the product context and
// issues the next fetch.
const (
	stageCatalog   = "catalog"
	stageProduct   = "product"
	stageAPI       = "api"
	stageSizeChart = "size_chart"
	stageReviews   = "reviews"
)

const (
	ctxStage   = "stage"
	ctxProduct = "product"
	ctxStart   = "start"

	catalogPageSize = 120
	reviewsPerPage  = 10
	dedupeCacheSize = 4096
)

// Scraper drives the catalog crawl: listing pages fan out into per-product
// traversals (detail page, article API, size chart, review feed pages), each
// step carrying an accumulated ProductContext until the finished context is
// handed to the pipeline.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	seen      *lru.Cache[string, struct{}]
	Metrics   *Metrics

	timing *TimingLog
	pipe   *pipeline.Pipeline

	requestCount  int64
	successCount  int64
	errorCount    int64
	responseBytes int64
	requestBytes  int64

	// dispatched counts products sent into traversal, gating the catalog
	// cursor against the configured limit.
	dispatched int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	shopHost, err := hostOf(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	reviewsHost, err := hostOf(cfg.ReviewsBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse reviews base url: %w", err)
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(shopHost, reviewsHost),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	seen, err := lru.New[string, struct{}](dedupeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}

	return &Scraper{
		cfg:          cfg,
		collector:    collector,
		seen:         seen,
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}, nil
}

func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q must include a host", rawURL)
	}
	return parsed.Host, nil
}

// Run starts the crawl and streams finished product contexts through the
// pipeline. It blocks until every outstanding traversal has drained.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.RunStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.cfg.DataRoot != "" {
		timing, err := OpenTimingLog(s.cfg.DataRoot)
		if err != nil {
			return nil, fmt.Errorf("open timing log: %w", err)
		}
		s.timing = timing
		defer s.timing.Close()
	}

	s.pipe = p
	s.configureHandlers(ctx)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.collector.Wait()
		case <-done:
		}
	}()

	if err := s.fetch(stageCatalog, s.catalogStartURL(), models.ProductContext{}); err != nil {
		return nil, fmt.Errorf("initial catalog fetch: %w", err)
	}

	s.collector.Wait()

	stats := &models.RunStats{
		StartTime:          start,
		FinishTime:         time.Now(),
		ElapsedTimeSeconds: time.Since(start).Seconds(),
		RequestBytes:       atomic.LoadInt64(&s.requestBytes),
		ResponseBytes:      atomic.LoadInt64(&s.responseBytes),
		RequestCount:       int(atomic.LoadInt64(&s.requestCount)),
		SuccessCount:       int(atomic.LoadInt64(&s.successCount)),
		ErrorCount:         int(atomic.LoadInt64(&s.errorCount)),
		FailedURLs:         s.snapshotFailedURLs(),
		ErrorsByType:       s.snapshotErrors(),
	}

	if metrics := p.GetMetrics(); metrics != nil {
		if processed, ok := metrics["processed_products"].(int64); ok {
			stats.ItemScrapedCount = int(processed)
		}
	}

	return stats, nil
}

func (s *Scraper) configureHandlers(ctx context.Context) {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put(ctxStart, time.Now())
			current := atomic.AddInt64(&s.requestCount, 1)
			atomic.AddInt64(&s.requestBytes, int64(len(r.URL.String())))
			if s.Metrics != nil {
				s.Metrics.IncRequest(stageOf(r.Ctx))
			}
			if current%50 == 0 {
				slog.Debug("scraper request progress",
					slog.Int64("requests", current),
					slog.Int64("dispatched", atomic.LoadInt64(&s.dispatched)),
					slog.String("url", r.URL.String()),
				)
			}
		})

		s.collector.OnResponse(func(r *colly.Response) {
			received := time.Now()
			atomic.AddInt64(&s.responseBytes, int64(len(r.Body)))
			if r.StatusCode < http.StatusBadRequest {
				atomic.AddInt64(&s.successCount, 1)
			} else {
				slog.Error("non-200 response",
					slog.Int("status", r.StatusCode),
					slog.String("url", r.Request.URL.String()),
				)
			}

			sent, _ := r.Request.Ctx.GetAny(ctxStart).(time.Time)
			if s.Metrics != nil && !sent.IsZero() {
				s.Metrics.ObserveDuration(received.Sub(sent))
			}
			if s.timing != nil && r.StatusCode == http.StatusOK {
				s.timing.Record(r.Request.URL.String(), sent, received, len(r.Body))
			}

			switch stageOf(r.Request.Ctx) {
			case stageCatalog:
				s.handleCatalog(ctx, r)
			case stageProduct:
				s.handleProductPage(r)
			case stageAPI:
				s.handleAPI(r)
			case stageSizeChart:
				s.handleSizeChart(r)
			case stageReviews:
				s.handleReviews(r)
			}
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			atomic.AddInt64(&s.errorCount, 1)
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			category := errorTypeLabel(classifyError(err, statusCode))

			url := ""
			if r != nil && r.Request != nil && r.Request.URL != nil {
				url = r.Request.URL.String()
			}
			s.mu.Lock()
			s.errorsByType[category]++
			s.failedURLs = append(s.failedURLs, url)
			s.mu.Unlock()

			// A failed sub-fetch ends that product's traversal: the record is
			// never emitted.
			slog.Error("request error",
				slog.String("url", url),
				slog.String("stage", stageName(r)),
				slog.String("category", category),
				slog.Any("error", err),
			)
			if s.Metrics != nil {
				s.Metrics.IncError(category)
			}
		})
	})
}

// handleCatalog processes one listing page: dispatch a traversal per unseen
// article, then follow the cursor while unfilled limit slots remain.
func (s *Scraper) handleCatalog(ctx context.Context, r *colly.Response) {
	page, err := parser.ParseCatalog(r.Body)
	if err != nil {
		s.recordStageError(stageCatalog, r.Request.URL.String(), err)
		return
	}

	limit := int64(s.cfg.Limit)
	for _, entry := range page.Entries {
		if limit > 0 && atomic.LoadInt64(&s.dispatched) >= limit {
			break
		}
		if ok, _ := s.seen.ContainsOrAdd(entry.Code, struct{}{}); ok {
			slog.Debug("duplicate article skipped", slog.String("article", entry.Code))
			continue
		}
		atomic.AddInt64(&s.dispatched, 1)
		pctx := models.NewProductContext(entry.Stat)
		if err := s.fetch(stageProduct, s.productPageURL(entry.Code), pctx); err != nil {
			slog.Error("product page fetch", slog.String("article", entry.Code), slog.Any("error", err))
		}
	}

	if page.NextParam == "" || ctx.Err() != nil {
		return
	}
	if limit > 0 && atomic.LoadInt64(&s.dispatched) >= limit {
		return
	}
	if err := s.fetch(stageCatalog, s.catalogNextURL(page.NextParam), models.ProductContext{}); err != nil {
		slog.Error("catalog page fetch", slog.Any("error", err))
	}
}

func (s *Scraper) handleProductPage(r *colly.Response) {
	pctx, ok := productOf(r.Request.Ctx)
	if !ok {
		return
	}
	page, err := parser.ParseProductPage(r.Body, r.Request.URL.String())
	if err != nil {
		s.recordStageError(stageProduct, r.Request.URL.String(), err)
		return
	}
	pctx = pctx.WithPage(page)
	if err := s.fetch(stageAPI, s.articleAPIURL(pctx.Stat().Article), pctx); err != nil {
		slog.Error("article api fetch", slog.String("article", pctx.Stat().Article), slog.Any("error", err))
	}
}

func (s *Scraper) handleAPI(r *colly.Response) {
	pctx, ok := productOf(r.Request.Ctx)
	if !ok {
		return
	}
	api, err := parser.ParseAPIInfo(r.Body)
	if err != nil {
		s.recordStageError(stageAPI, r.Request.URL.String(), err)
		return
	}
	pctx = pctx.WithAPI(api)
	if err := s.fetch(stageSizeChart, s.sizeChartURL(pctx.Stat().ModelCode), pctx); err != nil {
		slog.Error("size chart fetch", slog.String("article", pctx.Stat().Article), slog.Any("error", err))
	}
}

func (s *Scraper) handleSizeChart(r *colly.Response) {
	pctx, ok := productOf(r.Request.Ctx)
	if !ok {
		return
	}
	rows, err := parser.ParseSizeChart(r.Body)
	if err != nil {
		s.recordStageError(stageSizeChart, r.Request.URL.String(), err)
		return
	}
	pctx = pctx.WithSizeChart(rows)

	stat := pctx.Stat()
	if stat.ReviewCount > 0 {
		url := s.reviewsURL(stat.ModelCode, stat.Article, 1)
		if err := s.fetch(stageReviews, url, pctx); err != nil {
			slog.Error("review feed fetch", slog.String("article", stat.Article), slog.Any("error", err))
		}
		return
	}

	s.emit(pctx.WithReviews(models.ReviewData{}))
}

func (s *Scraper) handleReviews(r *colly.Response) {
	pctx, ok := productOf(r.Request.Ctx)
	if !ok {
		return
	}
	payload, err := parser.ParseReviewPayload(r.Body)
	if err != nil {
		s.recordStageError(stageReviews, r.Request.URL.String(), err)
		return
	}

	// Aggregate rating fields only appear on the first feed page. The page
	// number is reparsed from the response URL rather than carried as a
	// counter, so the traversal is resumable from URL state alone.
	page := pageFromURL(r.Request.URL)
	if page == 1 {
		pctx = pctx.WithReviews(payload.Aggregate)
	}
	pctx = pctx.AppendReviews(payload.Reviews)

	stat := pctx.Stat()
	if page+1 <= totalReviewPages(stat.ReviewCount) {
		url := s.reviewsURL(stat.ModelCode, stat.Article, page+1)
		if err := s.fetch(stageReviews, url, pctx); err != nil {
			slog.Error("review feed fetch", slog.String("article", stat.Article), slog.Any("error", err))
		}
		return
	}

	s.emit(pctx)
}

func (s *Scraper) emit(pctx models.ProductContext) {
	if s.Metrics != nil {
		s.Metrics.IncItems()
	}
	if err := s.pipe.Process(pctx); err != nil && err != pipeline.ErrPipelineClosed {
		slog.Error("pipeline process error",
			slog.String("article", pctx.Stat().Article),
			slog.Any("error", err),
		)
	}
}

// fetch issues a request tagged with a traversal stage and its accumulated
// product context.
func (s *Scraper) fetch(stage, url string, pctx models.ProductContext) error {
	cctx := colly.NewContext()
	cctx.Put(ctxStage, stage)
	cctx.Put(ctxProduct, pctx)
	return s.collector.Request(http.MethodGet, url, nil, cctx, nil)
}

func (s *Scraper) recordStageError(stage, url string, err error) {
	atomic.AddInt64(&s.errorCount, 1)
	s.mu.Lock()
	s.errorsByType["decode"]++
	s.failedURLs = append(s.failedURLs, url)
	s.mu.Unlock()
	slog.Error("stage payload error",
		slog.String("stage", stage),
		slog.String("url", url),
		slog.Any("error", err),
	)
	if s.Metrics != nil {
		s.Metrics.IncError("decode")
	}
}

func (s *Scraper) catalogStartURL() string {
	return fmt.Sprintf("%s/f/v1/pub/product/list?gender=%s&limit=%d&page=1",
		s.cfg.BaseURL, s.cfg.Gender, catalogPageSize)
}

// catalogNextURL resolves the server-supplied cursor into the next listing
// URL. The cursor arrives as an item path and must be rewritten to the list
// endpoint.
func (s *Scraper) catalogNextURL(next string) string {
	return s.cfg.BaseURL + "/f/v1/pub/product/" + strings.Replace(next, "item/", "list", 1)
}

func (s *Scraper) productPageURL(article string) string {
	return s.cfg.BaseURL + "/products/" + article + "/"
}

func (s *Scraper) articleAPIURL(article string) string {
	return s.cfg.BaseURL + "/f/v2/web/pub/products/article/" + article + "/"
}

func (s *Scraper) sizeChartURL(modelCode string) string {
	return s.cfg.BaseURL + "/f/v1/pub/size_chart/" + modelCode + "/"
}

func (s *Scraper) reviewsURL(modelCode, article string, page int) string {
	return fmt.Sprintf("%s/%s/reviews.djs?format=embeddedhtml&page=%d&productattribute_itemKcod=%s&scrollToTop=true",
		s.cfg.ReviewsBaseURL, modelCode, page, article)
}

func totalReviewPages(reviewCount int) int {
	return reviewCount/reviewsPerPage + 1
}

func pageFromURL(u *url.URL) int {
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func stageOf(ctx *colly.Context) string {
	stage, _ := ctx.GetAny(ctxStage).(string)
	if stage == "" {
		return "unknown"
	}
	return stage
}

func stageName(r *colly.Response) string {
	if r == nil || r.Request == nil || r.Request.Ctx == nil {
		return "unknown"
	}
	return stageOf(r.Request.Ctx)
}

func productOf(ctx *colly.Context) (models.ProductContext, bool) {
	pctx, ok := ctx.GetAny(ctxProduct).(models.ProductContext)
	return pctx, ok
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
	}

	return err
}
