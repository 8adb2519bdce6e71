// Package metadata looks up book details and cover images from public
// catalogues. Nothing here talks to the library backend.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const userAgent = "mylibrary/1.0 (+https://github.com/bremen-jose-oliveira/mylibrary)"

// ErrNotFound is returned when a catalogue has no match.
var ErrNotFound = errors.New("no matching book")

// BookMetadata contains book information from an external catalogue.
type BookMetadata struct {
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	ISBN            string `json:"isbn,omitempty"`
	CoverURL        string `json:"cover_url,omitempty"`
	Publisher       string `json:"publisher,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	Description     string `json:"description,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	Source          string `json:"source,omitempty"`
}

// Draft turns the metadata into a create payload the user can confirm.
func (m BookMetadata) Draft() entities.BookInput {
	return entities.BookInput{
		Title:         m.Title,
		Author:        m.Author,
		Year:          m.PublicationYear,
		Publisher:     m.Publisher,
		ISBN:          m.ISBN,
		Cover:         m.CoverURL,
		ReadingStatus: entities.ReadingStatusNotRead,
	}
}

// Provider is a catalogue that can resolve books by ISBN or title.
type Provider interface {
	Name() string
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
}

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

// Option configures a catalogue client.
type Option func(*clientOptions)

func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimSuffix(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithRateLimit caps outbound requests per second; zero or less disables
// limiting.
func WithRateLimit(perSecond float64) Option {
	return func(o *clientOptions) {
		if perSecond <= 0 {
			o.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *clientOptions) { o.log = l }
}

func buildOptions(defaultURL string, defaultRate float64, opts []Option) clientOptions {
	o := clientOptions{
		baseURL:    defaultURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	WithRateLimit(defaultRate)(&o)
	for _, opt := range opts {
		opt(&o)
	}
	o.log = logging.OrDiscard(o.log)
	return o
}

func (o clientOptions) get(ctx context.Context, url string) (*http.Response, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return o.httpClient.Do(req)
}

// secureURL upgrades http thumbnails so clients that forbid mixed content
// can load them.
func secureURL(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// extractYear tries to extract a 4-digit year from a date string.
func extractYear(dateStr string) int {
	dateStr = strings.TrimSpace(dateStr)
	if len(dateStr) < 4 {
		return 0
	}

	formats := []string{
		"2006",
		"2006-01",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
		"January 2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Year()
		}
	}

	// Last resort: find 4 consecutive digits
	for i := 0; i <= len(dateStr)-4; i++ {
		if dateStr[i] >= '0' && dateStr[i] <= '9' {
			var year int
			if _, err := fmt.Sscanf(dateStr[i:i+4], "%d", &year); err == nil && year > 1000 && year < 3000 {
				return year
			}
		}
	}
	return 0
}

// matchScore ranks a candidate against the requested title and author.
func matchScore(title, author, candTitle string, candAuthors []string, hasISBN, hasCover bool) int {
	titleLower := strings.ToLower(title)
	authorLower := strings.ToLower(author)
	score := 0

	candLower := strings.ToLower(candTitle)
	if candLower == titleLower {
		score += 10
	} else if titleLower != "" && strings.Contains(candLower, titleLower) {
		score += 5
	}

	if author != "" {
		for _, a := range candAuthors {
			a = strings.ToLower(a)
			if a == authorLower {
				score += 10
				break
			} else if strings.Contains(a, authorLower) {
				score += 5
				break
			}
		}
	}

	if hasISBN {
		score += 2
	}
	if hasCover {
		score++
	}
	return score
}
