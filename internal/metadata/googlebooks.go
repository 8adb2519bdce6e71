package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/sirupsen/logrus"
)

const defaultGoogleBooksURL = "https://www.googleapis.com/books/v1"

// GoogleBooksClient queries the keyless Google Books volumes endpoint.
type GoogleBooksClient struct {
	opts clientOptions
	log  logrus.FieldLogger
}

// NewGoogleBooksClient creates a client limited to 5 requests per second by
// default.
func NewGoogleBooksClient(opts ...Option) *GoogleBooksClient {
	o := buildOptions(defaultGoogleBooksURL, 5, opts)
	return &GoogleBooksClient{opts: o, log: o.log.WithField("provider", "googlebooks")}
}

func (c *GoogleBooksClient) Name() string { return "googlebooks" }

// Search returns every usable volume for a free-text query.
func (c *GoogleBooksClient) Search(ctx context.Context, query string) ([]BookMetadata, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	endpoint := fmt.Sprintf("%s/volumes?q=%s&maxResults=10", c.opts.baseURL, url.QueryEscape(query))
	resp, err := c.opts.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("search volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &api.MalformedResponseError{Path: "/volumes", Err: err}
	}

	books := make([]BookMetadata, 0, len(result.Items))
	for _, item := range result.Items {
		meta, ok := item.toMetadata()
		if !ok {
			c.log.WithField("volume", item.ID).Debug("skipping volume without title")
			continue
		}
		books = append(books, meta)
	}
	return books, nil
}

// SearchByISBN looks a single ISBN up with the "isbn:" qualifier.
func (c *GoogleBooksClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if isbn == "" {
		return nil, fmt.Errorf("isbn is required")
	}

	books, err := c.Search(ctx, "isbn:"+isbn)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: isbn %s", ErrNotFound, isbn)
	}
	book := books[0]
	if book.ISBN == "" {
		book.ISBN = isbn
	}
	return &book, nil
}

// SearchByTitle returns the best title/author match.
func (c *GoogleBooksClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	q := "intitle:" + title
	if author != "" {
		q += " inauthor:" + author
	}
	books, err := c.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, title)
	}

	best, bestScore := 0, -1
	for i, b := range books {
		score := matchScore(title, author, b.Title, strings.Split(b.Author, ", "), b.ISBN != "", b.CoverURL != "")
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return &books[best], nil
}

// FetchCover returns a cover URL for the title/author pair, or "" when the
// search has no cover.
func (c *GoogleBooksClient) FetchCover(ctx context.Context, title, author string) (string, error) {
	meta, err := c.SearchByTitle(ctx, title, author)
	if err != nil {
		return "", err
	}
	return meta.CoverURL, nil
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string      `json:"id"`
	VolumeInfo *volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	PageCount           int                  `json:"pageCount"`
	IndustryIdentifiers []industryIdentifier `json:"industryIdentifiers"`
	ImageLinks          *imageLinks          `json:"imageLinks"`
}

type industryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// toMetadata flattens a volume; volumes without a title are unusable.
func (v volume) toMetadata() (BookMetadata, bool) {
	info := v.VolumeInfo
	if info == nil || strings.TrimSpace(info.Title) == "" {
		return BookMetadata{}, false
	}

	meta := BookMetadata{
		Title:           info.Title,
		Author:          strings.Join(info.Authors, ", "),
		Publisher:       info.Publisher,
		PublicationYear: extractYear(info.PublishedDate),
		Description:     info.Description,
		PageCount:       info.PageCount,
		Source:          "googlebooks",
	}

	// Prefer ISBN-13
	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			meta.ISBN = id.Identifier
		case "ISBN_10":
			if meta.ISBN == "" {
				meta.ISBN = id.Identifier
			}
		}
	}

	if info.ImageLinks != nil {
		cover := info.ImageLinks.Thumbnail
		if cover == "" {
			cover = info.ImageLinks.SmallThumbnail
		}
		meta.CoverURL = secureURL(cover)
	}
	return meta, true
}
