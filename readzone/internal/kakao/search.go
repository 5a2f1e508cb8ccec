package kakao

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/zerodice0/readzone/readzone/internal/errs"
	"github.com/zerodice0/readzone/readzone/internal/isbn"
	"github.com/zerodice0/readzone/readzone/internal/model"
)

type Target string

const (
	TargetAny       Target = ""
	TargetTitle     Target = "title"
	TargetISBN      Target = "isbn"
	TargetPublisher Target = "publisher"
	TargetPerson    Target = "person"
)

type SearchParams struct {
	Query  string
	Page   int
	Size   int
	Target Target
	// Sort is accuracy (default) or latest.
	Sort string
}

func (c *Client) Search(ctx context.Context, p SearchParams) (model.ExternalPage, error) {
	if strings.TrimSpace(p.Query) == "" {
		return model.ExternalPage{}, errs.Invalid("query is required")
	}
	if p.Page < 1 || p.Page > maxPage || p.Size < 1 || p.Size > maxPageSize {
		return model.ExternalPage{}, errs.Invalid("page must be 1..50 and size 1..50")
	}
	q := url.Values{}
	q.Set("query", p.Query)
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("size", strconv.Itoa(p.Size))
	if p.Target != TargetAny {
		q.Set("target", string(p.Target))
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}

	body, err := c.get(ctx, q)
	if err != nil {
		return model.ExternalPage{}, err
	}
	return parsePage(body), nil
}

// SearchByISBN returns nil when the provider knows no book with that ISBN.
func (c *Client) SearchByISBN(ctx context.Context, normalized string) (*model.Book, error) {
	page, err := c.Search(ctx, SearchParams{Query: normalized, Page: 1, Size: 5, Target: TargetISBN})
	if err != nil {
		return nil, err
	}
	for i := range page.Books {
		if page.Books[i].ISBN == normalized {
			return &page.Books[i], nil
		}
	}
	// target=isbn only matches exact ISBNs, in either form.
	if len(page.Books) > 0 {
		return &page.Books[0], nil
	}
	return nil, nil
}

func parsePage(body []byte) model.ExternalPage {
	res := gjson.ParseBytes(body)
	meta := res.Get("meta")
	docs := res.Get("documents").Array()

	page := model.ExternalPage{
		Books:      make([]model.Book, 0, len(docs)),
		TotalCount: int(meta.Get("total_count").Int()),
		IsEnd:      meta.Get("is_end").Bool(),
	}
	for _, d := range docs {
		title := strings.TrimSpace(d.Get("title").String())
		if title == "" {
			continue
		}
		page.Books = append(page.Books, parseDocument(d, title))
	}
	return page
}

func parseDocument(d gjson.Result, title string) model.Book {
	authorsRaw := d.Get("authors").Array()
	authors := make([]string, 0, len(authorsRaw))
	for _, a := range authorsRaw {
		if s := strings.TrimSpace(a.String()); s != "" {
			authors = append(authors, s)
		}
	}
	b := model.Book{
		ISBN:        isbn.FromProvider(d.Get("isbn").String()),
		Title:       title,
		Authors:     authors,
		Publisher:   d.Get("publisher").String(),
		Thumbnail:   d.Get("thumbnail").String(),
		Description: d.Get("contents").String(),
		Source:      model.SourceKakao,
		ExternalID:  d.Get("url").String(),
	}
	if ts, err := time.Parse(time.RFC3339, d.Get("datetime").String()); err == nil {
		b.PublishedAt = &ts
	}
	return b
}
