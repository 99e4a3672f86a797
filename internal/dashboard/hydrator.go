package dashboard

import (
	"regexp"
	"strconv"

	"stockshock-backend/internal/models"
)

// placeholderRe matches the whole value, never a substring: a prose string
// mentioning a token is not a placeholder.
var placeholderRe = regexp.MustCompile(`^QUERY_RESULT_(\d+)$`)

// Hydrate replaces every QUERY_RESULT_N token inside block props with the
// rows of results[N]. N indexes the ORIGINAL candidate query list; slots
// whose query was rejected or failed carry an empty set, and out-of-bounds
// tokens resolve to empty rows rather than failing the response. Hydration
// is a single pass over a freshly built tree: substituted rows are never
// re-scanned, and neither the spec nor the result sets are mutated.
func Hydrate(spec map[string]interface{}, results []models.ResultSet) map[string]interface{} {
	if spec == nil {
		return map[string]interface{}{}
	}

	out := make(map[string]interface{}, len(spec))
	for k, v := range spec {
		out[k] = v
	}

	blocks, ok := spec["blocks"].([]interface{})
	if !ok {
		return out
	}

	hydrated := make([]interface{}, 0, len(blocks))
	for _, entry := range blocks {
		block, ok := entry.(map[string]interface{})
		if !ok {
			hydrated = append(hydrated, entry)
			continue
		}
		hydrated = append(hydrated, hydrateBlock(block, results))
	}
	out["blocks"] = hydrated

	return out
}

func hydrateBlock(block map[string]interface{}, results []models.ResultSet) map[string]interface{} {
	props, ok := block["props"].(map[string]interface{})
	if !ok {
		return block
	}

	out := make(map[string]interface{}, len(block))
	for k, v := range block {
		out[k] = v
	}
	out["props"] = hydrateValue(props, results)

	return out
}

// hydrateValue walks arbitrarily nested props values. Only scalar strings
// matching the placeholder pattern are replaced; everything else passes
// through unchanged.
func hydrateValue(value interface{}, results []models.ResultSet) interface{} {
	switch v := value.(type) {
	case string:
		m := placeholderRe.FindStringSubmatch(v)
		if m == nil {
			return v
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n >= len(results) {
			return []models.Row{}
		}
		return results[n].Rows
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, nested := range v {
			out[k] = hydrateValue(nested, results)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = hydrateValue(nested, results)
		}
		return out
	default:
		return v
	}
}
