package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"bookdesk/cache"
	"bookdesk/config"
	"bookdesk/logging"
	"bookdesk/models"
)

const searchFields = "title,author_name,publisher,isbn,first_publish_year,number_of_pages_median,language,cover_i"

// OpenLibrary looks titles up in the Open Library search API. Found records
// are cached per title.
type OpenLibrary struct {
	client    *resty.Client
	cache     *cache.Cache
	coverBase string
	logger    *zap.Logger
}

func NewOpenLibrary(cfg config.EnrichmentConfig, c *cache.Cache, logger *zap.Logger) *OpenLibrary {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if c == nil {
		c = cache.New(cfg.CacheTTL)
	}
	return &OpenLibrary{
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.OpenLibraryURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", "bookdesk/1.0"),
		cache:     c,
		coverBase: "https://covers.openlibrary.org/b/id",
		logger:    logging.OrNop(logger).Named("openlibrary"),
	}
}

// Lookup returns the best match for title, or nil when there is none.
func (o *OpenLibrary) Lookup(ctx context.Context, title string) (*models.BookRecord, error) {
	key := cache.Key("openlibrary", title)
	if rec, ok := o.cache.Book(key); ok {
		return &rec, nil
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"title": title, "limit": "1", "fields": searchFields}).
		Get("/search.json")
	if err != nil {
		return nil, fmt.Errorf("open library search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("open library search: unexpected status %d", resp.StatusCode())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("open library search: malformed response")
	}
	doc := gjson.GetBytes(body, "docs.0")
	if !doc.Exists() {
		return nil, nil
	}

	rec := models.BookRecord{
		Title:         doc.Get("title").String(),
		Author:        doc.Get("author_name.0").String(),
		Publisher:     doc.Get("publisher.0").String(),
		ISBN:          doc.Get("isbn.0").String(),
		PublishedYear: int(doc.Get("first_publish_year").Int()),
		PageCount:     int(doc.Get("number_of_pages_median").Int()),
		Language:      doc.Get("language.0").String(),
	}
	if cover := doc.Get("cover_i").Int(); cover > 0 {
		rec.CoverURL = fmt.Sprintf("%s/%d-M.jpg", o.coverBase, cover)
	}

	o.cache.PutBook(key, rec)
	o.logger.Debug("metadata fetched", zap.String("title", title), zap.String("match", rec.Title))
	return &rec, nil
}

// Close drops idle keep-alive connections.
func (o *OpenLibrary) Close() {
	o.client.GetClient().CloseIdleConnections()
}
