package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockshock-backend/internal/models"
)

func lineChartSpec() map[string]interface{} {
	return map[string]interface{}{
		"blocks": []interface{}{
			map[string]interface{}{
				"type": "line-chart",
				"props": map[string]interface{}{
					"data":  "QUERY_RESULT_0",
					"xKey":  "date",
					"yKeys": []interface{}{"AAPL"},
				},
			},
		},
	}
}

func TestHydrate_ReplacesPlaceholderWithRows(t *testing.T) {
	results := []models.ResultSet{
		models.NewResultSet([]models.Row{{"date": "2024-01-01", "AAPL": 100}}),
	}

	hydrated := Hydrate(lineChartSpec(), results)

	block := hydrated["blocks"].([]interface{})[0].(map[string]interface{})
	props := block["props"].(map[string]interface{})

	rows, ok := props["data"].([]models.Row)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, 100, rows[0]["AAPL"])

	assert.Equal(t, "date", props["xKey"])
	assert.Equal(t, []interface{}{"AAPL"}, props["yKeys"])
}

func TestHydrate_OutOfBoundsTokenResolvesEmpty(t *testing.T) {
	spec := map[string]interface{}{
		"blocks": []interface{}{
			map[string]interface{}{
				"type":  "table",
				"props": map[string]interface{}{"data": "QUERY_RESULT_7"},
			},
		},
	}

	hydrated := Hydrate(spec, nil)

	props := hydrated["blocks"].([]interface{})[0].(map[string]interface{})["props"].(map[string]interface{})
	rows, ok := props["data"].([]models.Row)
	require.True(t, ok)
	assert.Empty(t, rows)
}

func TestHydrate_RejectedSlotCarriesEmptyRows(t *testing.T) {
	// Slot 1 stands in for a query the guard rejected; slot 2 must still
	// resolve by its original index.
	results := []models.ResultSet{
		models.NewResultSet([]models.Row{{"ticker": "AAPL"}}),
		models.EmptyResultSet(),
		models.NewResultSet([]models.Row{{"title": "headline"}}),
	}

	spec := map[string]interface{}{
		"blocks": []interface{}{
			map[string]interface{}{
				"type": "table",
				"props": map[string]interface{}{
					"prices":   "QUERY_RESULT_0",
					"rejected": "QUERY_RESULT_1",
					"news":     "QUERY_RESULT_2",
				},
			},
		},
	}

	hydrated := Hydrate(spec, results)
	props := hydrated["blocks"].([]interface{})[0].(map[string]interface{})["props"].(map[string]interface{})

	assert.Len(t, props["prices"], 1)
	assert.Empty(t, props["rejected"])
	assert.Equal(t, "headline", props["news"].([]models.Row)[0]["title"])
}

func TestHydrate_NestedPlaceholders(t *testing.T) {
	results := []models.ResultSet{
		models.NewResultSet([]models.Row{{"close": 101.5}}),
	}

	spec := map[string]interface{}{
		"blocks": []interface{}{
			map[string]interface{}{
				"type": "line-chart",
				"props": map[string]interface{}{
					"series": []interface{}{
						map[string]interface{}{"name": "AAPL", "data": "QUERY_RESULT_0"},
					},
					"meta": map[string]interface{}{"source": "QUERY_RESULT_0"},
				},
			},
		},
	}

	hydrated := Hydrate(spec, results)
	props := hydrated["blocks"].([]interface{})[0].(map[string]interface{})["props"].(map[string]interface{})

	series := props["series"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, 101.5, series["data"].([]models.Row)[0]["close"])
	assert.Equal(t, 101.5, props["meta"].(map[string]interface{})["source"].([]models.Row)[0]["close"])
}

func TestHydrate_NonMatchingValuesPassThrough(t *testing.T) {
	spec := map[string]interface{}{
		"blocks": []interface{}{
			map[string]interface{}{
				"type": "kpi-card",
				"props": map[string]interface{}{
					"count":   float64(3),
					"label":   "QUERY_RESULT_ (not a token)",
					"partial": "QUERY_RESULT_",
					"prose":   "see QUERY_RESULT_0 above",
					"flag":    true,
					"nothing": nil,
				},
			},
		},
	}

	hydrated := Hydrate(spec, []models.ResultSet{models.NewResultSet(nil)})
	props := hydrated["blocks"].([]interface{})[0].(map[string]interface{})["props"].(map[string]interface{})

	assert.Equal(t, float64(3), props["count"])
	assert.Equal(t, "QUERY_RESULT_ (not a token)", props["label"])
	assert.Equal(t, "QUERY_RESULT_", props["partial"])
	assert.Equal(t, "see QUERY_RESULT_0 above", props["prose"])
	assert.Equal(t, true, props["flag"])
	assert.Nil(t, props["nothing"])
}

func TestHydrate_SubstitutedRowsNeverRescanned(t *testing.T) {
	// A row value that looks like a placeholder token must survive as-is.
	results := []models.ResultSet{
		models.NewResultSet([]models.Row{{"note": "QUERY_RESULT_0"}}),
	}

	hydrated := Hydrate(lineChartSpec(), results)
	props := hydrated["blocks"].([]interface{})[0].(map[string]interface{})["props"].(map[string]interface{})

	assert.Equal(t, "QUERY_RESULT_0", props["data"].([]models.Row)[0]["note"])
}

func TestHydrate_DoesNotMutateInputs(t *testing.T) {
	spec := lineChartSpec()
	results := []models.ResultSet{
		models.NewResultSet([]models.Row{{"AAPL": 100}}),
	}

	Hydrate(spec, results)

	props := spec["blocks"].([]interface{})[0].(map[string]interface{})["props"].(map[string]interface{})
	assert.Equal(t, "QUERY_RESULT_0", props["data"])
	assert.Len(t, results[0].Rows, 1)
}

func TestHydrate_BlocksWithoutPropsPassThrough(t *testing.T) {
	spec := map[string]interface{}{
		"blocks": []interface{}{
			map[string]interface{}{"type": "divider"},
			"stray string",
		},
	}

	hydrated := Hydrate(spec, nil)
	blocks := hydrated["blocks"].([]interface{})

	assert.Equal(t, map[string]interface{}{"type": "divider"}, blocks[0])
	assert.Equal(t, "stray string", blocks[1])
}
