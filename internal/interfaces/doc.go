// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and see how the pieces are wired in internal/entrypoint.
//
// # Interface Categories
//
// ## Session Interfaces
//
//   - tokenstore.Store: Persist the bearer token (internal/tokenstore/tokenstore.go)
//   - store.API / session.API: Authenticated JSON requests (internal/api/client.go)
//
// ## Collection Interfaces
//
//   - api.Validatable: Reject malformed server payloads (internal/api/errors.go)
//   - store.CoverEnricher: Backfill missing covers (internal/store/books.go)
//   - scheduler.NotificationSource / FriendRequestSource: Background refresh
//     targets (internal/scheduler/refresh.go)
//
// ## External Service Interfaces
//
//   - metadata.Provider: Book metadata from public catalogues (internal/metadata/metadata.go)
//   - scanner.Finder: Resolve a scanned ISBN into a draft book (internal/scanner/scanner.go)
//
// # Adding a New Collection
//
// To cache another server resource:
//
//  1. Define the entity with an Identity and a Validate method in internal/entities/
//
//     type Shelf struct {
//         ID   int64  `json:"id"`
//         Name string `json:"name"`
//     }
//
//     func (s Shelf) Identity() int64 { return s.ID }
//     func (s Shelf) Validate() error { ... }
//
//  2. Embed store.Collection in a store and refresh through fetchList
//
//     type ShelfStore struct {
//         Collection[entities.Shelf]
//         api API
//         log logrus.FieldLogger
//     }
//
//     func (s *ShelfStore) Refresh(ctx context.Context) {
//         s.refresh(ctx, s.log, func(ctx context.Context) ([]entities.Shelf, error) {
//             return fetchList[entities.Shelf](ctx, s.api, "/api/shelves")
//         })
//     }
//
//  3. Construct it in entrypoint.NewWithTokenStore and reset it on logout
//
// # Adding a New Metadata Provider
//
// To add a new source of book metadata:
//
//  1. Implement Provider in internal/metadata/
//
//     func (c *IsbndbClient) Name() string
//     func (c *IsbndbClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
//     func (c *IsbndbClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error)
//
//     var _ Provider = (*IsbndbClient)(nil)
//
//  2. Add it to the enricher's provider list in entrypoint.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
