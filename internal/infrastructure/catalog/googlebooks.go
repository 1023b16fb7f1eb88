// Package catalog is the client for the Google Books volumes API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/books/v1"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 4 << 20
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config configures the Google Books client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GoogleBooks implements ports.CatalogLookup.
type GoogleBooks struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

func NewGoogleBooks(cfg Config, log zerolog.Logger) *GoogleBooks {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &GoogleBooks{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.With().Str("component", "google_books").Logger(),
	}
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo volumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type volumeInfo struct {
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	PageCount           int      `json:"pageCount"`
	Language            string   `json:"language"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		SmallThumbnail string `json:"smallThumbnail"`
		Thumbnail      string `json:"thumbnail"`
	} `json:"imageLinks"`
}

func (v volumeInfo) toDomain() domain.CatalogVolume {
	out := domain.CatalogVolume{
		Title:         v.Title,
		Authors:       v.Authors,
		Description:   v.Description,
		Publisher:     v.Publisher,
		PublishedDate: v.PublishedDate,
		PageCount:     v.PageCount,
		Language:      v.Language,
		CoverURL:      v.ImageLinks.Thumbnail,
	}
	if v.Subtitle != "" {
		out.Title = v.Title + ": " + v.Subtitle
	}
	if out.CoverURL == "" {
		out.CoverURL = v.ImageLinks.SmallThumbnail
	}
	out.CoverURL = strings.Replace(out.CoverURL, "http://", "https://", 1)

	// Prefer ISBN-13.
	for _, id := range v.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			out.ISBN = id.Identifier
		case "ISBN_10":
			if out.ISBN == "" {
				out.ISBN = id.Identifier
			}
		}
	}
	return out
}

// SearchByISBN returns the first volume matching isbn.
func (g *GoogleBooks) SearchByISBN(ctx context.Context, isbn string) (*domain.CatalogVolume, error) {
	res, err := g.volumes(ctx, "isbn:"+isbn, 1)
	if err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, domain.ErrCatalogNoMatch
	}
	v := res.Items[0].VolumeInfo.toDomain()
	if v.ISBN == "" {
		v.ISBN = isbn
	}
	return &v, nil
}

// Search runs a free-text query.
func (g *GoogleBooks) Search(ctx context.Context, query string, maxResults int) ([]domain.CatalogVolume, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Invalid("query is required")
	}
	res, err := g.volumes(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CatalogVolume, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, item.VolumeInfo.toDomain())
	}
	return out, nil
}

func (g *GoogleBooks) volumes(ctx context.Context, q string, maxResults int) (*volumesResponse, error) {
	params := url.Values{}
	params.Set("q", q)
	if maxResults > 0 {
		params.Set("maxResults", strconv.Itoa(maxResults))
	}
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}
	endpoint := g.baseURL + "/volumes?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		g.log.Error().Err(err).Str("q", q).Msg("catalog request failed")
		return nil, domain.ErrCatalogUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		g.log.Error().Err(err).Str("q", q).Msg("catalog response read failed")
		return nil, domain.ErrCatalogUnavailable
	}

	if resp.StatusCode != http.StatusOK {
		g.log.Error().
			Int("status", resp.StatusCode).
			Str("q", q).
			Str("body", truncate(string(body), 256)).
			Msg("catalog returned an error status")
		return nil, domain.ErrCatalogUnavailable
	}

	var out volumesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		g.log.Error().Err(err).Str("q", q).Msg("catalog response decode failed")
		return nil, domain.ErrCatalogUnavailable
	}

	g.log.Debug().
		Str("q", q).
		Int("items", len(out.Items)).
		Dur("took", time.Since(started)).
		Msg("catalog lookup")
	return &out, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var _ ports.CatalogLookup = (*GoogleBooks)(nil)
