package sqlguard

// Config is the closed surface the guard admits. Both lists are
// configuration, not code: they are the most security-relevant constants
// in the system and ship with conservative defaults.
type Config struct {
	AllowedTables     []string
	ForbiddenKeywords []string
}

// DefaultConfig returns the guard configuration used when none is supplied:
// the price-series and news tables, and every statement keyword that can
// mutate data or schema.
func DefaultConfig() *Config {
	return &Config{
		AllowedTables: []string{"stock_prices", "news"},
		ForbiddenKeywords: []string{
			"insert", "update", "delete", "drop", "alter", "create",
			"truncate", "replace", "merge", "grant", "revoke",
			"attach", "detach", "pragma", "vacuum", "reindex",
		},
	}
}
