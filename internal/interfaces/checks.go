package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/bremen-jose-oliveira/mylibrary/internal/api"
	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/metadata"
	"github.com/bremen-jose-oliveira/mylibrary/internal/scanner"
	"github.com/bremen-jose-oliveira/mylibrary/internal/scheduler"
	"github.com/bremen-jose-oliveira/mylibrary/internal/session"
	"github.com/bremen-jose-oliveira/mylibrary/internal/store"
	"github.com/bremen-jose-oliveira/mylibrary/internal/tokenstore"
)

// =============================================================================
// Session
// =============================================================================

// Token stores
var _ tokenstore.Store = (*tokenstore.SQLiteStore)(nil)
var _ tokenstore.Store = (*tokenstore.MemoryStore)(nil)

// API gateway
var _ store.API = (*api.Client)(nil)
var _ session.API = (*api.Client)(nil)

// =============================================================================
// Collections
// =============================================================================

// Boundary validation
var _ api.Validatable = entities.Book{}
var _ api.Validatable = entities.Friendship{}
var _ api.Validatable = entities.Exchange{}
var _ api.Validatable = entities.Review{}
var _ api.Validatable = entities.Notification{}
var _ api.Validatable = entities.UserSummary{}

// Background refresh sources
var _ scheduler.NotificationSource = (*store.NotificationStore)(nil)
var _ scheduler.FriendRequestSource = (*store.FriendStore)(nil)

// =============================================================================
// Catalogue
// =============================================================================

// Providers
var _ metadata.Provider = (*metadata.GoogleBooksClient)(nil)
var _ metadata.Provider = (*metadata.OpenLibraryClient)(nil)

// Cover enrichment
var _ store.CoverEnricher = (*metadata.Enricher)(nil)

// ISBN lookup
var _ scanner.Finder = scanner.FinderFunc(nil)
