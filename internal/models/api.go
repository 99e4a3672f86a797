package models

// QueryRequest is the inbound body for POST /api/query.
type QueryRequest struct {
	Message      string                 `json:"message"`
	CurrentChaos map[string]interface{} `json:"currentChaos,omitempty"`
	UserID       string                 `json:"userId,omitempty"`
}

// QueryResponse is the composed reply returned to the client. SQLQueries
// carries the original unfiltered candidate list for transparency.
type QueryResponse struct {
	Intent           string                 `json:"intent"`
	AssistantMessage string                 `json:"assistantMessage"`
	SQLQueries       []string               `json:"sqlQueries"`
	DashboardSpec    map[string]interface{} `json:"dashboardSpec"`
}

// ChaosStateRequest is the inbound body for PUT /api/chaos.
type ChaosStateRequest struct {
	UserID string                 `json:"userId"`
	Chaos  map[string]interface{} `json:"chaos"`
}
