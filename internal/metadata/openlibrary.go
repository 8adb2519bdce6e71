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

const defaultOpenLibraryURL = "https://openlibrary.org"

// OpenLibraryClient fetches book metadata from the OpenLibrary API. It backs
// up Google Books when a volume has no cover.
type OpenLibraryClient struct {
	opts clientOptions
	log  logrus.FieldLogger
}

// NewOpenLibraryClient creates a client limited to one request per second,
// which is what OpenLibrary asks of anonymous callers.
func NewOpenLibraryClient(opts ...Option) *OpenLibraryClient {
	o := buildOptions(defaultOpenLibraryURL, 1, opts)
	return &OpenLibraryClient{opts: o, log: o.log.WithField("provider", "openlibrary")}
}

func (c *OpenLibraryClient) Name() string { return "openlibrary" }

// SearchByISBN looks up a book by its ISBN.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("invalid ISBN")
	}

	var book openLibraryBook
	found, err := c.getJSON(ctx, fmt.Sprintf("/isbn/%s.json", isbn), &book)
	if err != nil {
		return nil, fmt.Errorf("fetch ISBN data: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: isbn %s", ErrNotFound, isbn)
	}

	meta := &BookMetadata{
		Title:           book.Title,
		ISBN:            isbn,
		CoverURL:        coverIDURL(book.Covers),
		PublicationYear: extractYear(book.PublishDate),
		PageCount:       book.NumberOfPages,
		Source:          "openlibrary",
	}
	if len(book.Publishers) > 0 {
		meta.Publisher = book.Publishers[0]
	}
	switch v := book.Description.(type) {
	case string:
		meta.Description = v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			meta.Description = val
		}
	}

	if len(book.Authors) > 0 {
		if name, err := c.fetchAuthorName(ctx, book.Authors[0].Key); err == nil {
			meta.Author = name
		} else {
			c.log.WithError(err).Debug("author lookup failed")
		}
	}
	return meta, nil
}

// SearchByTitle looks up a book by title and author, returning the best match.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title is required")
	}

	q := title
	if author != "" {
		q = title + " " + author
	}

	var result openLibrarySearchResult
	if _, err := c.getJSON(ctx, "/search.json?limit=5&q="+url.QueryEscape(q), &result); err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	if len(result.Docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, title)
	}

	return findBestMatch(result.Docs, title, author).toMetadata(), nil
}

// getJSON decodes a 200 response into out. A 404 reports found=false.
func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, out any) (bool, error) {
	resp, err := c.opts.get(ctx, c.opts.baseURL+path)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &api.MalformedResponseError{Path: path, Err: err}
	}
	return true, nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}

	var author struct {
		Name string `json:"name"`
	}
	found, err := c.getJSON(ctx, authorKey+".json", &author)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: author %s", ErrNotFound, authorKey)
	}
	return author.Name, nil
}

func findBestMatch(docs []openLibrarySearchDoc, title, author string) *openLibrarySearchDoc {
	best := &docs[0]
	bestScore := -1
	for i := range docs {
		doc := &docs[i]
		score := matchScore(title, author, doc.Title, doc.AuthorName, len(doc.ISBN) > 0, doc.CoverI != 0)
		if score > bestScore {
			bestScore = score
			best = doc
		}
	}
	return best
}

// coverIDURL points at the first cover id OpenLibrary actually holds. Negative
// ids mark removed covers.
func coverIDURL(ids []int) string {
	for _, id := range ids {
		if id > 0 {
			return fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", id)
		}
	}
	return ""
}

// normalizeISBN removes hyphens and spaces; anything not 10 or 13 long is
// rejected.
func normalizeISBN(isbn string) string {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}

type openLibraryBook struct {
	Key           string      `json:"key"`
	Title         string      `json:"title"`
	Authors       []authorRef `json:"authors"`
	Publishers    []string    `json:"publishers"`
	PublishDate   string      `json:"publish_date"`
	NumberOfPages int         `json:"number_of_pages"`
	Description   any         `json:"description"` // string or {type, value}
	Covers        []int       `json:"covers"`
}

type authorRef struct {
	Key string `json:"key"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Publisher        []string `json:"publisher"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
}

func (doc *openLibrarySearchDoc) toMetadata() *BookMetadata {
	meta := &BookMetadata{
		Title:           doc.Title,
		PublicationYear: doc.FirstPublishYear,
		Source:          "openlibrary",
	}
	if len(doc.AuthorName) > 0 {
		meta.Author = doc.AuthorName[0]
	}
	if len(doc.Publisher) > 0 {
		meta.Publisher = doc.Publisher[0]
	}
	if len(doc.ISBN) > 0 {
		meta.ISBN = doc.ISBN[0]
	}
	if doc.CoverI != 0 {
		meta.CoverURL = coverIDURL([]int{doc.CoverI})
	}
	return meta
}
