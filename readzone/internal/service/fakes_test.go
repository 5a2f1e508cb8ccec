package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/kakao"
	"github.com/zerodice0/readzone/readzone/internal/model"
	"github.com/zerodice0/readzone/readzone/internal/repository"
)

type pair struct{ user, review int64 }

// fakeRepo is an in-memory stand-in for the PostgreSQL repository.
type fakeRepo struct {
	mu        sync.Mutex
	weights   repository.FeedWeights
	books     map[int64]model.Book
	reviews   map[int64]*model.Review
	users     map[int64]model.UserSummary
	follows   map[pair]struct{} // user follows review=followee
	likes     map[pair]struct{}
	bookmarks map[pair]struct{}
	searchErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		weights:   repository.FeedWeights{Like: 3, Comment: 2, Bookmark: 1},
		books:     map[int64]model.Book{},
		reviews:   map[int64]*model.Review{},
		users:     map[int64]model.UserSummary{},
		follows:   map[pair]struct{}{},
		likes:     map[pair]struct{}{},
		bookmarks: map[pair]struct{}{},
	}
}

func (f *fakeRepo) addUser(id int64, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[id] = model.UserSummary{ID: id, Username: name, Nickname: name}
}

func (f *fakeRepo) addBook(b model.Book) model.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.books[b.ID] = b
	return b
}

func (f *fakeRepo) addReview(rv model.Review) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rv.Tags == nil {
		rv.Tags = []string{}
	}
	f.reviews[rv.ID] = &rv
}

func (f *fakeRepo) SearchBooks(_ context.Context, query string, offset, limit int) ([]model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	q := strings.ToLower(query)
	var out []model.Book
	for _, b := range f.books {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(strings.Join(b.Authors, " ")), q) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) GetBook(_ context.Context, id int64) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) GetBookByISBN(_ context.Context, isbn string) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if b.ISBN != "" && b.ISBN == isbn {
			return b, nil
		}
	}
	return model.Book{}, errs.ErrNotFound
}

func (f *fakeRepo) CreateBook(_ context.Context, b model.Book) (model.Book, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.books {
		if b.ISBN != "" && existing.ISBN == b.ISBN {
			return existing, false, nil
		}
		if b.ISBN == "" && existing.ISBN == "" && strings.EqualFold(existing.Title, b.Title) &&
			strings.Join(existing.Authors, "\x00") == strings.Join(b.Authors, "\x00") {
			return existing, false, nil
		}
	}
	f.books[b.ID] = b
	return b, true, nil
}

func (f *fakeRepo) CreateReview(_ context.Context, rv model.Review) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[rv.BookID]; !ok {
		return model.Review{}, errs.ErrNotFound
	}
	rv.CreatedAt = time.Now()
	rv.UpdatedAt = rv.CreatedAt
	f.reviews[rv.ID] = &rv
	return rv, nil
}

func (f *fakeRepo) GetReview(_ context.Context, id int64) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok {
		return model.Review{}, errs.ErrNotFound
	}
	return *rv, nil
}

func (f *fakeRepo) view(rv model.Review) model.ReviewView {
	b := f.books[rv.BookID]
	return model.ReviewView{
		Review: rv,
		Book:   model.BookSummary{ID: b.ID, Title: b.Title, Authors: b.Authors, Thumbnail: b.Thumbnail},
		Author: f.users[rv.UserID],
	}
}

func (f *fakeRepo) GetReviewView(_ context.Context, id int64) (model.ReviewView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok || rv.Status == model.StatusDeleted {
		return model.ReviewView{}, errs.ErrNotFound
	}
	rv.ViewCount++
	return f.view(*rv), nil
}

func (f *fakeRepo) PublishReview(_ context.Context, id int64) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok {
		return model.Review{}, errs.ErrNotFound
	}
	if rv.Status == model.StatusDraft {
		now := time.Now().UTC()
		rv.Status = model.StatusPublished
		rv.PublishedAt = &now
	}
	return *rv, nil
}

func (f *fakeRepo) SetReviewStatus(_ context.Context, id int64, status model.ReviewStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[id]
	if !ok {
		return errs.ErrNotFound
	}
	rv.Status = status
	return nil
}

func (f *fakeRepo) score(rv *model.Review) int64 {
	return int64(rv.LikeCount*f.weights.Like + rv.CommentCount*f.weights.Comment + rv.BookmarkCount*f.weights.Bookmark)
}

func keyLess(a, b model.FeedKey) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.Before(b.PublishedAt)
	}
	return a.ID < b.ID
}

func (f *fakeRepo) Feed(_ context.Context, q repository.FeedQuery) ([]repository.FeedRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []repository.FeedRow
	for _, rv := range f.reviews {
		if rv.Status != model.StatusPublished {
			continue
		}
		if q.Tab == model.TabFollowing {
			if _, ok := f.follows[pair{q.ViewerID, rv.UserID}]; !ok {
				continue
			}
		}
		key := model.FeedKey{PublishedAt: *rv.PublishedAt, ID: rv.ID}
		if q.Tab == model.TabRecommended {
			key.Score = f.score(rv)
		}
		if q.After != nil && !keyLess(key, *q.After) {
			continue
		}
		rows = append(rows, repository.FeedRow{View: f.view(*rv), Key: key})
	}
	sort.Slice(rows, func(i, j int) bool { return keyLess(rows[j].Key, rows[i].Key) })
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (f *fakeRepo) set(m map[pair]struct{}, userID int64, ids []int64) map[int64]struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[int64]struct{}{}
	for _, id := range ids {
		if _, ok := m[pair{userID, id}]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func (f *fakeRepo) LikedSet(_ context.Context, userID int64, ids []int64) (map[int64]struct{}, error) {
	return f.set(f.likes, userID, ids), nil
}

func (f *fakeRepo) BookmarkedSet(_ context.Context, userID int64, ids []int64) (map[int64]struct{}, error) {
	return f.set(f.bookmarks, userID, ids), nil
}

func (f *fakeRepo) toggle(m map[pair]struct{}, counter func(*model.Review) *int, userID, reviewID int64, active bool) (model.ToggleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[reviewID]
	if !ok || rv.Status != model.StatusPublished {
		return model.ToggleResult{}, errs.ErrNotFound
	}
	k := pair{userID, reviewID}
	_, exists := m[k]
	res := model.ToggleResult{Active: active}
	switch {
	case active && !exists:
		m[k] = struct{}{}
		*counter(rv)++
		res.Changed = true
	case !active && exists:
		delete(m, k)
		if *counter(rv) > 0 {
			*counter(rv)--
		}
		res.Changed = true
	}
	res.Count = *counter(rv)
	return res, nil
}

func (f *fakeRepo) ToggleLike(_ context.Context, userID, reviewID int64, active bool) (model.ToggleResult, error) {
	return f.toggle(f.likes, func(r *model.Review) *int { return &r.LikeCount }, userID, reviewID, active)
}

func (f *fakeRepo) ToggleBookmark(_ context.Context, userID, reviewID int64, active bool) (model.ToggleResult, error) {
	return f.toggle(f.bookmarks, func(r *model.Review) *int { return &r.BookmarkCount }, userID, reviewID, active)
}

func (f *fakeRepo) ToggleFollow(_ context.Context, followerID, followeeID int64, active bool) (model.ToggleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[followeeID]; !ok {
		return model.ToggleResult{}, errs.ErrNotFound
	}
	k := pair{followerID, followeeID}
	_, exists := f.follows[k]
	res := model.ToggleResult{Active: active}
	if active && !exists {
		f.follows[k] = struct{}{}
		res.Changed = true
	} else if !active && exists {
		delete(f.follows, k)
		res.Changed = true
	}
	for p := range f.follows {
		if p.review == followeeID {
			res.Count++
		}
	}
	return res, nil
}

func (f *fakeRepo) RecountReview(_ context.Context, reviewID int64) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rv, ok := f.reviews[reviewID]
	if !ok {
		return 0, 0, errs.ErrNotFound
	}
	rv.LikeCount, rv.BookmarkCount = 0, 0
	for p := range f.likes {
		if p.review == reviewID {
			rv.LikeCount++
		}
	}
	for p := range f.bookmarks {
		if p.review == reviewID {
			rv.BookmarkCount++
		}
	}
	return rv.LikeCount, rv.BookmarkCount, nil
}

type fakeProvider struct {
	mu      sync.Mutex
	calls   atomic.Int32
	pages   map[string]model.ExternalPage
	isbns   map[string]model.Book
	err     error
	release chan struct{}
	entered chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{pages: map[string]model.ExternalPage{}, isbns: map[string]model.Book{}}
}

func (p *fakeProvider) Search(ctx context.Context, params kakao.SearchParams) (model.ExternalPage, error) {
	p.calls.Add(1)
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return model.ExternalPage{}, p.err
	}
	page, ok := p.pages[params.Query]
	if !ok {
		return model.ExternalPage{Books: []model.Book{}, IsEnd: true}, nil
	}
	return page, nil
}

func (p *fakeProvider) SearchByISBN(_ context.Context, isbn string) (*model.Book, error) {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	b, ok := p.isbns[isbn]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

type fakeQuota struct {
	mu    sync.Mutex
	used  int
	limit int
}

func (q *fakeQuota) RecordUsage(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.used >= q.limit {
		return errs.New(errs.QuotaExceeded, "daily external search quota exhausted")
	}
	q.used++
	return nil
}

func (q *fakeQuota) Usage(context.Context) (model.Usage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return model.Usage{Used: q.used, Limit: q.limit, Remaining: max(0, q.limit-q.used)}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.InteractionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.InteractionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
