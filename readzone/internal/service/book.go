package service

import (
	"context"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/zerodice0/readzone/pkg/snowflake"
	"github.com/zerodice0/readzone/readzone/internal/cache"
	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/isbn"
	"github.com/zerodice0/readzone/readzone/internal/kakao"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
	maxSearchPage      = 50
	maxBatchQueries    = 10
)

type BookConfig struct {
	MinLocalResults int
	SearchTTL       time.Duration
	ISBNTTL         time.Duration
	// ISBNMissTTL caches not-found ISBN lookups; zero disables it.
	ISBNMissTTL     time.Duration
	BatchWorkers    int
}

type BookService struct {
	repo     BookRepository
	provider BookProvider
	quota    QuotaTracker
	cache    *cache.Cache
	cfg      BookConfig
	group    singleflight.Group
	log      *zap.Logger
}

func NewBookService(repo BookRepository, provider BookProvider, quota QuotaTracker, c *cache.Cache, cfg BookConfig, log *zap.Logger) *BookService {
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 4
	}
	return &BookService{
		repo:     repo,
		provider: provider,
		quota:    quota,
		cache:    c,
		cfg:      cfg,
		log:      log.Named("books"),
	}
}

func normalizeSearch(q model.SearchQuery) (model.SearchQuery, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return q, errs.New(errs.InvalidParams, "query is required").
			WithDetails(map[string]string{"field": "query"})
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultSearchLimit
	}
	if q.Page < 1 || q.Page > maxSearchPage {
		return q, errs.New(errs.InvalidParams, "page must be between 1 and 50").
			WithDetails(map[string]any{"field": "page", "value": q.Page})
	}
	if q.Limit < 1 || q.Limit > maxSearchLimit {
		return q, errs.New(errs.InvalidParams, "limit must be between 1 and 50").
			WithDetails(map[string]any{"field": "limit", "value": q.Limit})
	}
	return q, nil
}

// Search answers from the local catalogue when it has enough matches and
// otherwise tops the local page up with provider results.
func (s *BookService) Search(ctx context.Context, q model.SearchQuery) (model.SearchResult, error) {
	q, err := normalizeSearch(q)
	if err != nil {
		return model.SearchResult{}, err
	}
	offset := (q.Page - 1) * q.Limit

	local, err := s.repo.SearchBooks(ctx, q.Query, offset, q.Limit)
	if err != nil {
		s.log.Error("local search", zap.String("query", q.Query), zap.Error(err))
		local = nil
	}
	for i := range local {
		local[i].Source = model.SourceDatabase
	}

	if len(local) >= s.cfg.MinLocalResults && len(local) > 0 {
		return model.SearchResult{
			Books:      local,
			Source:     model.SourceDatabase,
			TotalCount: offset + len(local),
			Page:       q.Page,
			Limit:      q.Limit,
			HasMore:    len(local) == q.Limit,
		}, nil
	}

	page, err := s.external(ctx, q)
	if err != nil {
		if len(local) == 0 {
			return model.SearchResult{}, err
		}
		s.log.Warn("degraded search", zap.String("query", q.Query), zap.Error(err))
		return model.SearchResult{
			Books:      local,
			Source:     model.SourceDatabase,
			TotalCount: offset + len(local),
			Page:       q.Page,
			Limit:      q.Limit,
			Error:      marker(err),
		}, nil
	}

	books := mergeByISBN(local, page.Books)
	res := model.SearchResult{
		Books:      books,
		Source:     model.SourceKakao,
		TotalCount: max(page.TotalCount, len(books)),
		Page:       q.Page,
		Limit:      q.Limit,
		HasMore:    !page.IsEnd,
	}
	if len(books) == 0 {
		res.NoResults = true
		res.HasMore = false
	}
	return res, nil
}

// external returns one provider page through the cache. Concurrent misses on
// a key share one quota reservation and one provider call.
func (s *BookService) external(ctx context.Context, q model.SearchQuery) (model.ExternalPage, error) {
	key := cache.SearchKey(q.Query, q.Page, q.Limit)
	var page model.ExternalPage
	if s.cache.Get(ctx, key, &page) {
		return page, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if err := s.quota.RecordUsage(callCtx); err != nil {
			return nil, err
		}
		page, err := s.provider.Search(callCtx, kakao.SearchParams{Query: q.Query, Page: q.Page, Size: q.Limit})
		if err != nil {
			return nil, err
		}
		s.cache.Set(callCtx, key, page, s.cfg.SearchTTL)
		return page, nil
	})
	if err != nil {
		return model.ExternalPage{}, err
	}
	if shared {
		s.log.Debug("provider call shared", zap.String("key", key))
	}
	page = v.(model.ExternalPage)
	out := page
	out.Books = append([]model.Book(nil), page.Books...)
	return out, nil
}

func mergeByISBN(local, external []model.Book) []model.Book {
	seen := make(map[string]struct{}, len(local))
	out := make([]model.Book, 0, len(local)+len(external))
	for _, b := range local {
		if b.ISBN != "" {
			seen[b.ISBN] = struct{}{}
		}
		out = append(out, b)
	}
	for _, b := range external {
		if b.ISBN != "" {
			if _, dup := seen[b.ISBN]; dup {
				continue
			}
			seen[b.ISBN] = struct{}{}
		}
		out = append(out, b)
	}
	return out
}

func (s *BookService) SearchByISBN(ctx context.Context, raw string) (model.ISBNResult, error) {
	n, err := isbn.Normalize(raw)
	if err != nil {
		return model.ISBNResult{}, err
	}

	b, err := s.repo.GetBookByISBN(ctx, n)
	switch {
	case err == nil:
		b.Source = model.SourceDatabase
		return model.ISBNResult{ISBN: n, Found: true, Book: &b, Source: model.SourceDatabase}, nil
	case errs.TypeOf(err) != errs.NotFound:
		s.log.Error("local isbn lookup", zap.String("isbn", n), zap.Error(err))
	}

	key := cache.ISBNKey(n)
	var cached model.ISBNResult
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if err := s.quota.RecordUsage(callCtx); err != nil {
			return nil, err
		}
		found, err := s.provider.SearchByISBN(callCtx, n)
		if err != nil {
			return nil, err
		}
		if found == nil {
			res := model.ISBNResult{ISBN: n}
			if s.cfg.ISBNMissTTL > 0 {
				s.cache.Set(callCtx, key, res, s.cfg.ISBNMissTTL)
			}
			return res, nil
		}
		res := model.ISBNResult{ISBN: n, Found: true, Book: found, Source: model.SourceKakao}
		s.cache.Set(callCtx, key, res, s.cfg.ISBNTTL)
		return res, nil
	})
	if err != nil {
		return model.ISBNResult{}, err
	}
	res := v.(model.ISBNResult)
	if res.Book != nil {
		cp := *res.Book
		res.Book = &cp
	}
	return res, nil
}

func (s *BookService) BatchSearch(ctx context.Context, req model.BatchRequest) (model.BatchResult, error) {
	if len(req.Queries) > maxBatchQueries {
		return model.BatchResult{}, errs.New(errs.InvalidParams, "at most 10 queries per batch").
			WithDetails(map[string]any{"field": "queries", "count": len(req.Queries)})
	}
	queries := make([]string, 0, len(req.Queries))
	for _, q := range req.Queries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return model.BatchResult{}, errs.New(errs.InvalidParams, "at least one non-empty query is required").
			WithDetails(map[string]string{"field": "queries"})
	}
	limit := req.MaxResults
	if limit == 0 {
		limit = defaultSearchLimit
	}
	if limit < 1 || limit > maxSearchLimit {
		return model.BatchResult{}, errs.New(errs.InvalidParams, "maxResults must be between 1 and 50").
			WithDetails(map[string]any{"field": "maxResults", "value": req.MaxResults})
	}

	items := make([]model.BatchItem, len(queries))
	p := pool.New().WithMaxGoroutines(s.cfg.BatchWorkers)
	for i, q := range queries {
		i, q := i, q
		p.Go(func() {
			item := model.BatchItem{Query: q}
			res, err := s.Search(ctx, model.SearchQuery{Query: q, Page: 1, Limit: limit})
			if err != nil {
				item.Error = marker(err)
			} else {
				item.Result = &res
			}
			items[i] = item
		})
	}
	p.Wait()
	return model.BatchResult{Results: items}, nil
}

// CreateBook stores a selected provider book or a manual entry. An existing
// matching book is returned with created=false.
func (s *BookService) CreateBook(ctx context.Context, req model.CreateBookRequest) (model.Book, bool, error) {
	b := model.Book{
		ID:          snowflake.GenID(),
		Title:       strings.TrimSpace(req.Title),
		Publisher:   strings.TrimSpace(req.Publisher),
		Thumbnail:   req.Thumbnail,
		Description: req.Description,
		PublishedAt: req.PublishedAt,
		Source:      req.Source,
		ExternalID:  req.ExternalID,
	}
	if b.Title == "" {
		return model.Book{}, false, errs.New(errs.InvalidParams, "title is required").
			WithDetails(map[string]string{"field": "title"})
	}
	if b.Source != model.SourceKakao && b.Source != model.SourceManual {
		return model.Book{}, false, errs.New(errs.InvalidParams, "source must be KAKAO_API or MANUAL").
			WithDetails(map[string]string{"field": "source", "value": string(req.Source)})
	}
	if strings.TrimSpace(req.ISBN) != "" {
		n, err := isbn.Normalize(req.ISBN)
		if err != nil {
			return model.Book{}, false, err
		}
		b.ISBN = n
	}
	b.Authors = make([]string, 0, len(req.Authors))
	for _, a := range req.Authors {
		if a = strings.TrimSpace(a); a != "" {
			b.Authors = append(b.Authors, a)
		}
	}

	book, created, err := s.repo.CreateBook(ctx, b)
	if err != nil {
		return model.Book{}, false, storageErr(err, "book")
	}
	if created {
		s.log.Info("book created", zap.Int64("id", book.ID), zap.String("source", string(book.Source)))
	}
	return book, created, nil
}

func (s *BookService) GetBook(ctx context.Context, id int64) (model.Book, error) {
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return model.Book{}, storageErr(err, "book")
	}
	return b, nil
}

func (s *BookService) Usage(ctx context.Context) (model.Usage, error) {
	return s.quota.Usage(ctx)
}

func (s *BookService) CacheStats(ctx context.Context) (model.CacheStats, error) {
	return s.cache.Stats(ctx), nil
}

// ClearCache flushes everything when pattern is empty.
func (s *BookService) ClearCache(ctx context.Context, pattern string) (model.ClearCacheResult, error) {
	if pattern == "" {
		n := s.cache.Clear(ctx)
		s.log.Info("cache cleared", zap.Int("deleted", n))
		return model.ClearCacheResult{Deleted: n}, nil
	}
	n, err := s.cache.DeletePattern(ctx, pattern)
	if err != nil {
		return model.ClearCacheResult{}, err
	}
	s.log.Info("cache pattern cleared", zap.String("pattern", pattern), zap.Int("deleted", n))
	return model.ClearCacheResult{Pattern: pattern, Deleted: n}, nil
}
