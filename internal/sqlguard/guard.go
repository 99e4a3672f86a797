// Package sqlguard decides which model-generated SQL statements may reach
// the storage engine. It is a denylist-plus-allowlist filter, not a SQL
// parser: it prefers rejecting exotic-but-safe SQL over admitting anything
// unsafe, and it is the only admission path to the read-only query surface.
package sqlguard

import (
	"regexp"
	"strings"
)

var (
	firstKeywordRe = regexp.MustCompile(`^[\s(]*([a-zA-Z]+)`)

	// tableClauseRe finds every point where a table list begins; what
	// follows each match must positively resolve against the allowlist.
	tableClauseRe = regexp.MustCompile(`(?i)\b(?:from|join)\b`)

	// clauseEndRe terminates a table list. A closing paren ends the list
	// too, so a subselect inside WHERE resolves only its own tables.
	clauseEndRe = regexp.MustCompile(`(?i)[;)]|\b(?:where|group|having|order|limit|offset|union|intersect|except|on|join|using)\b`)

	// bareIdentRe is the only form a table reference may take. Quoted,
	// bracketed, dotted or otherwise decorated names do not resolve and
	// make the whole query unsafe.
	bareIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

type Guard struct {
	allowedTables map[string]bool
	forbiddenRe   *regexp.Regexp
}

// New builds a guard from cfg; nil cfg uses DefaultConfig.
func New(cfg *Config) *Guard {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	allowed := make(map[string]bool, len(cfg.AllowedTables))
	for _, t := range cfg.AllowedTables {
		allowed[strings.ToLower(t)] = true
	}

	escaped := make([]string, len(cfg.ForbiddenKeywords))
	for i, kw := range cfg.ForbiddenKeywords {
		escaped[i] = regexp.QuoteMeta(strings.ToLower(kw))
	}

	return &Guard{
		allowedTables: allowed,
		forbiddenRe:   regexp.MustCompile(`(?i)\b(?:` + strings.Join(escaped, "|") + `)\b`),
	}
}

// IsSafe reports whether a single candidate query may be executed.
// Rejection is silent: the caller only sees false, never an error.
func (g *Guard) IsSafe(query string) bool {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false
	}

	if countStatements(trimmed) != 1 {
		return false
	}

	m := firstKeywordRe.FindStringSubmatch(trimmed)
	if m == nil || strings.ToLower(m[1]) != "select" {
		return false
	}

	if g.forbiddenRe.MatchString(trimmed) {
		return false
	}

	return g.tablesAllowed(trimmed)
}

// FilterSafe returns the safe subset of queries in their original relative
// order. Surviving entries are returned unmodified.
func (g *Guard) FilterSafe(queries []string) []string {
	safe := make([]string, 0, len(queries))
	for _, q := range queries {
		if g.IsSafe(q) {
			safe = append(safe, q)
		}
	}
	return safe
}

// tablesAllowed requires every table list after FROM/JOIN to resolve
// entirely to allowlisted names. Unresolvable means unsafe, never
// unchecked: a reference the segment check cannot positively account for
// rejects the whole query.
func (g *Guard) tablesAllowed(query string) bool {
	for _, loc := range tableClauseRe.FindAllStringIndex(query, -1) {
		segment := query[loc[1]:]
		if end := clauseEndRe.FindStringIndex(segment); end != nil {
			segment = segment[:end[0]]
		}
		if !g.segmentAllowed(segment) {
			return false
		}
	}
	return true
}

// segmentAllowed validates one comma-separated table list. Each element is
// a bare allowlisted identifier plus at most one bare alias (optionally
// with AS); anything else in the segment fails it.
func (g *Guard) segmentAllowed(segment string) bool {
	if strings.TrimSpace(segment) == "" {
		return false
	}

	for _, element := range strings.Split(segment, ",") {
		fields := strings.Fields(element)
		if len(fields) == 0 {
			return false
		}
		if !bareIdentRe.MatchString(fields[0]) || !g.allowedTables[strings.ToLower(fields[0])] {
			return false
		}

		alias := fields[1:]
		if len(alias) > 0 && strings.EqualFold(alias[0], "as") {
			alias = alias[1:]
			if len(alias) == 0 {
				return false
			}
		}
		if len(alias) > 1 {
			return false
		}
		if len(alias) == 1 && !bareIdentRe.MatchString(alias[0]) {
			return false
		}
	}

	return true
}

// countStatements counts the non-empty statements produced by splitting on
// the statement separator.
func countStatements(query string) int {
	count := 0
	for _, part := range strings.Split(query, ";") {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}
