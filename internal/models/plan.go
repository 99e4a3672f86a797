package models

// Row is a single query result row keyed by column name.
type Row map[string]interface{}

// ResultSet holds the ordered rows returned for one candidate query.
// Empty marks a slot whose query was rejected by the guard or failed
// during execution, distinguishing "no data" from zero matching rows.
type ResultSet struct {
	Rows  []Row
	Empty bool
}

// NewResultSet wraps rows from the storage engine, preserving order.
func NewResultSet(rows []Row) ResultSet {
	if rows == nil {
		rows = []Row{}
	}
	return ResultSet{Rows: rows}
}

// EmptyResultSet is the slot value for rejected or failed queries.
func EmptyResultSet() ResultSet {
	return ResultSet{Rows: []Row{}, Empty: true}
}

// QueryPlan is the untrusted output of the planning collaborator. Nothing
// in it may reach the storage engine without passing the SQL guard.
type QueryPlan struct {
	Intent           string                 `json:"intent"`
	AssistantMessage string                 `json:"assistantMessage"`
	SQLQueries       []string               `json:"sqlQueries"`
	DashboardSpec    map[string]interface{} `json:"dashboardSpec"`
}
