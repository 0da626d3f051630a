// Package books looks up bibliographic data for a scanned ISBN.
package books

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anime-shed/bookcapture-go/internal/barcode"
	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/logger"
)

const defaultCoversURL = "https://covers.openlibrary.org"

// Book is the subset of Open Library data shown after a scan.
type Book struct {
	ISBN        string   `json:"isbn"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Publishers  []string `json:"publishers,omitempty"`
	PublishDate string   `json:"publish_date,omitempty"`
	Pages       int      `json:"number_of_pages,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// Lookup resolves an ISBN to a Book.
type Lookup interface {
	LookupISBN(ctx context.Context, isbn string) (*Book, error)
}

type named struct {
	Name string `json:"name"`
}

// booksResponse is the api/books payload, keyed by "ISBN:<n>".
type booksResponse map[string]struct {
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Subtitle      string  `json:"subtitle"`
	Authors       []named `json:"authors"`
	Publishers    []named `json:"publishers"`
	PublishDate   string  `json:"publish_date"`
	NumberOfPages int     `json:"number_of_pages"`
	Subjects      []named `json:"subjects"`
	Cover         struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
}

type openLibrary struct {
	baseURL   string
	coversURL string
	client    *http.Client
}

// NewOpenLibrary creates a client for the Open Library Books API at baseURL.
func NewOpenLibrary(baseURL string, timeout time.Duration) Lookup {
	return &openLibrary{
		baseURL:   strings.TrimRight(baseURL, "/"),
		coversURL: defaultCoversURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (o *openLibrary) LookupISBN(ctx context.Context, isbn string) (*Book, error) {
	normalized, ok := barcode.NormalizeISBN(isbn)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid ISBN %q", isbn), nil)
	}

	q := url.Values{}
	q.Set("bibkeys", "ISBN:"+normalized)
	q.Set("format", "json")
	q.Set("jscmd", "data")
	endpoint := o.baseURL + "/api/books?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build book lookup request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("book lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("book lookup returned status %d", resp.StatusCode), nil)
	}

	var payload booksResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewNetworkError("failed to decode book lookup response", err)
	}

	logger.Component("books").WithFields(map[string]interface{}{
		"isbn":     normalized,
		"duration": time.Since(start).String(),
	}).Debug("Book lookup completed")

	entry, ok := payload["ISBN:"+normalized]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no book found for ISBN %s", normalized), nil)
	}

	book := &Book{
		ISBN:        normalized,
		Title:       entry.Title,
		Subtitle:    entry.Subtitle,
		Authors:     names(entry.Authors),
		Publishers:  names(entry.Publishers),
		PublishDate: entry.PublishDate,
		Pages:       entry.NumberOfPages,
		Subjects:    names(entry.Subjects),
		CoverURL:    entry.Cover.Large,
		URL:         entry.URL,
	}
	if book.CoverURL == "" {
		book.CoverURL = fmt.Sprintf("%s/b/isbn/%s-L.jpg", o.coversURL, normalized)
	}
	return book, nil
}

func names(in []named) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, n := range in {
		out = append(out, n.Name)
	}
	return out
}
