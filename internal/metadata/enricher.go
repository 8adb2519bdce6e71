package metadata

import (
	"context"
	"slices"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Enricher backfills missing covers from an ordered list of providers.
// Lookups never fail: every provider error is logged and treated as "no
// cover".
type Enricher struct {
	providers   []Provider
	concurrency int
	log         logrus.FieldLogger
}

// NewEnricher creates an Enricher. concurrency bounds the number of books
// looked up at once; values below 1 use the default.
func NewEnricher(providers []Provider, concurrency int, log logrus.FieldLogger) *Enricher {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Enricher{
		providers:   providers,
		concurrency: concurrency,
		log:         logging.OrDiscard(log).WithField("component", "enricher"),
	}
}

// FetchCover returns the first cover found for title/author, or "".
func (e *Enricher) FetchCover(ctx context.Context, title, author string) string {
	return e.coverFor(ctx, entities.Book{Title: title, Author: author})
}

// coverFor tries the ISBN first when the book has one, then title/author.
func (e *Enricher) coverFor(ctx context.Context, book entities.Book) string {
	if book.Title == "" && book.ISBN == "" {
		return ""
	}

	for _, p := range e.providers {
		log := e.log.WithFields(logrus.Fields{"provider": p.Name(), "title": book.Title})

		if book.ISBN != "" {
			meta, err := p.SearchByISBN(ctx, book.ISBN)
			if err == nil && meta.CoverURL != "" {
				return meta.CoverURL
			}
			if err != nil {
				log.WithError(err).Debug("isbn cover lookup failed")
			}
		}

		if book.Title == "" {
			continue
		}
		meta, err := p.SearchByTitle(ctx, book.Title, book.Author)
		if err != nil {
			log.WithError(err).Debug("cover lookup failed")
			continue
		}
		if meta.CoverURL != "" {
			return meta.CoverURL
		}
	}
	return ""
}

// EnrichBooks returns a copy of books where every missing cover has been
// looked up concurrently. Books without a result keep a nil cover.
func (e *Enricher) EnrichBooks(ctx context.Context, books []entities.Book) []entities.Book {
	out := slices.Clone(books)
	if len(e.providers) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i := range out {
		if out[i].HasCover() {
			continue
		}
		i := i
		g.Go(func() error {
			if cover := e.coverFor(ctx, out[i]); cover != "" {
				out[i].Cover = &cover
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}
