package config

// Default locations for the client's local state and upstream services
const (
	// DefaultTokenDatabasePath is where the encrypted session token is persisted
	DefaultTokenDatabasePath = "./mylibrary.db"

	// DefaultAPIBaseURL points at a locally running backend (or the fake server)
	DefaultAPIBaseURL = "http://localhost:8080"

	DefaultGoogleBooksURL = "https://www.googleapis.com/books/v1"
	DefaultOpenLibraryURL = "https://openlibrary.org"

	// DefaultRefreshSchedule runs the background refresh every five minutes
	DefaultRefreshSchedule = "*/5 * * * *"
)
