package server

// Config is the story server configuration.
type Config struct {
	// Address to listen on (e.g., ":6061")
	ListenAddr string

	// DBPath is the path to the SQLite story database.
	// Use ":memory:" for an in-memory database.
	DBPath string
}
