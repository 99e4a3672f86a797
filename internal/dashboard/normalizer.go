// Package dashboard shapes the layout tree produced by the planning
// collaborator: normalization canonicalizes block shapes, hydration
// substitutes query results for placeholder tokens.
package dashboard

// Normalize canonicalizes every block to the {type, props} shape. The
// planner emits two equivalent forms, fields nested under props or inlined
// on the block; both normalize to the former. Blocks without a type and
// non-object entries pass through untouched since the source is a
// generative model that may emit partial structures; rendering those is
// the client's problem. Normalize is pure and idempotent.
func Normalize(raw map[string]interface{}) map[string]interface{} {
	if raw == nil {
		return map[string]interface{}{}
	}

	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	blocks, ok := raw["blocks"].([]interface{})
	if !ok {
		return out
	}

	normalized := make([]interface{}, 0, len(blocks))
	for _, entry := range blocks {
		block, ok := entry.(map[string]interface{})
		if !ok {
			normalized = append(normalized, entry)
			continue
		}
		normalized = append(normalized, normalizeBlock(block))
	}
	out["blocks"] = normalized

	return out
}

func normalizeBlock(block map[string]interface{}) map[string]interface{} {
	if _, hasType := block["type"]; !hasType {
		return block
	}
	if _, hasProps := block["props"]; hasProps {
		return block
	}

	props := make(map[string]interface{}, len(block)-1)
	for k, v := range block {
		if k == "type" {
			continue
		}
		props[k] = v
	}

	return map[string]interface{}{
		"type":  block["type"],
		"props": props,
	}
}
