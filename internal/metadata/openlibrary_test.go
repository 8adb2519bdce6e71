package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestOpenLibrary(url string) *OpenLibraryClient {
	return NewOpenLibraryClient(WithBaseURL(url), WithRateLimit(0))
}

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"0-13-468599-6", "0134685996"},
		{"978 0 13 468599 1", "9780134685991"},
		{"123", ""},            // Too short
		{"12345678901234", ""}, // Too long
		{"", ""},
		{"  978-0-13-468599-1  ", "9780134685991"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeISBN(tt.input)
			if result != tt.expected {
				t.Errorf("normalizeISBN(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestExtractYear(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"2020", 2020},
		{"2004-05", 2004},
		{"January 15, 2019", 2019},
		{"Jan 15, 2019", 2019},
		{"2021-06-15", 2021},
		{"January 2018", 2018},
		{"Published in 1999", 1999},
		{"", 0},
		{"no year here", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := extractYear(tt.input)
			if result != tt.expected {
				t.Errorf("extractYear(%q) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestOpenLibrary_SearchByISBN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/isbn/9780134685991.json":
			response := openLibraryBook{
				Key:           "/books/OL123M",
				Title:         "Effective Java",
				Publishers:    []string{"Addison-Wesley"},
				PublishDate:   "2018",
				NumberOfPages: 416,
				Authors:       []authorRef{{Key: "/authors/OL456A"}},
				Covers:        []int{-1, 8231856},
			}
			_ = json.NewEncoder(w).Encode(response)
		case "/authors/OL456A.json":
			_ = json.NewEncoder(w).Encode(map[string]string{"name": "Joshua Bloch"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	metadata, err := newTestOpenLibrary(server.URL).SearchByISBN(context.Background(), "978-0-13-468599-1")
	if err != nil {
		t.Fatalf("SearchByISBN failed: %v", err)
	}

	if metadata.Title != "Effective Java" {
		t.Errorf("expected title 'Effective Java', got %q", metadata.Title)
	}
	if metadata.Publisher != "Addison-Wesley" {
		t.Errorf("expected publisher 'Addison-Wesley', got %q", metadata.Publisher)
	}
	if metadata.PublicationYear != 2018 {
		t.Errorf("expected year 2018, got %d", metadata.PublicationYear)
	}
	if metadata.Author != "Joshua Bloch" {
		t.Errorf("expected author 'Joshua Bloch', got %q", metadata.Author)
	}
	if metadata.CoverURL != "https://covers.openlibrary.org/b/id/8231856-L.jpg" {
		t.Errorf("unexpected cover URL %q", metadata.CoverURL)
	}
}

func TestOpenLibrary_SearchByISBN_NoCovers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/isbn/9780441172719.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"title":"Dune"}`))
	}))
	defer server.Close()

	metadata, err := newTestOpenLibrary(server.URL).SearchByISBN(context.Background(), "9780441172719")
	if err != nil {
		t.Fatalf("SearchByISBN failed: %v", err)
	}
	if metadata.Title != "Dune" {
		t.Errorf("expected title 'Dune', got %q", metadata.Title)
	}
	if metadata.CoverURL != "" {
		t.Errorf("expected no cover URL for a record without covers, got %q", metadata.CoverURL)
	}
}

func TestOpenLibrary_SearchByISBN_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestOpenLibrary(server.URL).SearchByISBN(context.Background(), "0000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenLibrary_SearchByISBN_InvalidISBN(t *testing.T) {
	_, err := NewOpenLibraryClient().SearchByISBN(context.Background(), "invalid")
	if err == nil {
		t.Error("expected error for invalid ISBN")
	}
}

func TestOpenLibrary_SearchByTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("q"); got != "Clean Code Robert Martin" {
			t.Errorf("unexpected query %q", got)
		}
		response := openLibrarySearchResult{
			NumFound: 1,
			Docs: []openLibrarySearchDoc{{
				Key:              "/works/OL789W",
				Title:            "Clean Code",
				AuthorName:       []string{"Robert C. Martin"},
				FirstPublishYear: 2008,
				Publisher:        []string{"Prentice Hall"},
				ISBN:             []string{"9780132350884"},
				CoverI:           12345,
			}},
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	metadata, err := newTestOpenLibrary(server.URL).SearchByTitle(context.Background(), "Clean Code", "Robert Martin")
	if err != nil {
		t.Fatalf("SearchByTitle failed: %v", err)
	}

	if metadata.Author != "Robert C. Martin" {
		t.Errorf("expected author 'Robert C. Martin', got %q", metadata.Author)
	}
	if metadata.ISBN != "9780132350884" {
		t.Errorf("expected ISBN '9780132350884', got %q", metadata.ISBN)
	}
	if metadata.PublicationYear != 2008 {
		t.Errorf("expected year 2008, got %d", metadata.PublicationYear)
	}
	if metadata.CoverURL != "https://covers.openlibrary.org/b/id/12345-L.jpg" {
		t.Errorf("unexpected cover URL %q", metadata.CoverURL)
	}
}

func TestOpenLibrary_SearchByTitle_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openLibrarySearchResult{Docs: []openLibrarySearchDoc{}})
	}))
	defer server.Close()

	_, err := newTestOpenLibrary(server.URL).SearchByTitle(context.Background(), "Nonexistent Book Title XYZ", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindBestMatch(t *testing.T) {
	docs := []openLibrarySearchDoc{
		{Title: "Other Book", AuthorName: []string{"Someone Else"}},
		{Title: "Clean Code", AuthorName: []string{"Robert C. Martin"}, ISBN: []string{"123"}, CoverI: 1},
		{Title: "Clean Code: A Handbook", AuthorName: []string{"Another Author"}},
	}

	best := findBestMatch(docs, "Clean Code", "Robert Martin")

	if best.Title != "Clean Code" {
		t.Errorf("expected best match to be 'Clean Code', got %q", best.Title)
	}
	if len(best.AuthorName) == 0 || best.AuthorName[0] != "Robert C. Martin" {
		t.Errorf("expected best match author to be 'Robert C. Martin'")
	}
}

func TestRateLimit(t *testing.T) {
	o := buildOptions("http://unused", 20, nil)

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := o.limiter.Wait(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)

	// Burst of one: the second call waits roughly 50ms
	if elapsed < 40*time.Millisecond {
		t.Errorf("rate limiter did not wait: elapsed=%v", elapsed)
	}
}
