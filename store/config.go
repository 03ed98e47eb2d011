package store

// Config holds configuration for the DynamoDB backend.
type Config struct {
	// Table is the name of the shared documents table.
	// Default: "vitrine_documents"
	//
	// Layout: pk (S) = collection name, sk (S) = document id. A collection
	// listing is a single-partition Query, which is fine at this scale -
	// the largest collection here (products) stays well under one
	// partition's throughput limits.
	Table string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table: "vitrine_documents",
	}
}

// validate ensures config values are usable.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = "vitrine_documents"
	}
}
