// Package orchestrator coordinates one question-to-dashboard request:
// plan, filter, execute, normalize, hydrate, attach theming.
package orchestrator

import (
	"context"
	"sync"

	apperrors "stockshock-backend/internal/common/errors"
	"stockshock-backend/internal/common/logger"
	"stockshock-backend/internal/common/observability"
	"stockshock-backend/internal/dashboard"
	"stockshock-backend/internal/models"
	"stockshock-backend/internal/sqlguard"
)

// Planner produces a query plan for a user message.
type Planner interface {
	Plan(ctx context.Context, message string, currentChaos map[string]interface{}) (*models.QueryPlan, error)
}

// QueryExecutor runs one approved read-only statement.
type QueryExecutor interface {
	Query(ctx context.Context, sqlText string) ([]models.Row, error)
}

// ChaosStore persists per-user theming state.
type ChaosStore interface {
	Get(ctx context.Context, userID string) (map[string]interface{}, error)
	Set(ctx context.Context, userID string, state map[string]interface{}) error
}

type Orchestrator struct {
	planner  Planner
	guard    *sqlguard.Guard
	executor QueryExecutor
	chaos    ChaosStore
	obs      *observability.Observability
	logger   logger.Logger
}

func New(planner Planner, guard *sqlguard.Guard, executor QueryExecutor, chaos ChaosStore, obs *observability.Observability, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		planner:  planner,
		guard:    guard,
		executor: executor,
		chaos:    chaos,
		obs:      obs,
		logger: log.With(map[string]interface{}{
			"component": "orchestrator",
		}),
	}
}

// Process answers one user message. Only a planning failure is terminal;
// rejected or failing queries degrade to empty result slots and theming
// persistence problems are logged without failing the request.
func (o *Orchestrator) Process(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	plan, err := o.planner.Plan(ctx, req.Message, req.CurrentChaos)
	if err != nil {
		o.logger.WithError(err).Error("planning failed", map[string]interface{}{
			"userId": req.UserID,
		})
		return nil, err
	}

	results := o.executeApproved(ctx, plan.SQLQueries)

	spec := dashboard.Normalize(plan.DashboardSpec)
	spec = dashboard.Hydrate(spec, results)
	o.attachTheming(ctx, spec, req)

	o.logger.Info("request processed", map[string]interface{}{
		"intent":     plan.Intent,
		"queryCount": len(plan.SQLQueries),
	})

	return &models.QueryResponse{
		Intent:           plan.Intent,
		AssistantMessage: plan.AssistantMessage,
		SQLQueries:       plan.SQLQueries,
		DashboardSpec:    spec,
	}, nil
}

// executeApproved runs guard-approved queries concurrently, writing each
// result back to its original index. Rejected and failing queries leave an
// empty slot so placeholder indices stay stable.
func (o *Orchestrator) executeApproved(ctx context.Context, queries []string) []models.ResultSet {
	results := make([]models.ResultSet, len(queries))
	for i := range results {
		results[i] = models.EmptyResultSet()
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, query := range queries {
		if !o.guard.IsSafe(query) {
			o.obs.RecordCandidateQuery(ctx, "rejected")
			o.logger.Warn("unsafe query rejected", map[string]interface{}{
				"queryIndex": i,
			})
			continue
		}
		o.obs.RecordCandidateQuery(ctx, "approved")

		wg.Add(1)
		go func(idx int, sqlText string) {
			defer wg.Done()

			rows, err := o.executor.Query(ctx, sqlText)
			if err != nil {
				execErr := apperrors.NewQueryExecutionFailedError(idx, err)
				o.logger.WithError(execErr).Error("query execution failed", map[string]interface{}{
					"queryIndex": idx,
				})
				return
			}

			mu.Lock()
			results[idx] = models.NewResultSet(rows)
			mu.Unlock()
		}(i, query)
	}

	wg.Wait()
	return results
}

// attachTheming resolves the effective theming state. A caller-supplied
// state wins and is persisted best-effort; otherwise the persisted state
// is attached; with neither, the spec carries no theming field at all.
func (o *Orchestrator) attachTheming(ctx context.Context, spec map[string]interface{}, req *models.QueryRequest) {
	if len(req.CurrentChaos) > 0 {
		spec["theming"] = req.CurrentChaos
		if req.UserID != "" {
			if err := o.chaos.Set(ctx, req.UserID, req.CurrentChaos); err != nil {
				o.logger.WithError(err).Warn("theming persistence failed", map[string]interface{}{
					"userId": req.UserID,
				})
			}
		}
		return
	}

	if req.UserID == "" {
		return
	}

	persisted, err := o.chaos.Get(ctx, req.UserID)
	if err != nil {
		o.logger.WithError(err).Warn("theming fetch failed", map[string]interface{}{
			"userId": req.UserID,
		})
		return
	}
	if persisted != nil {
		spec["theming"] = persisted
	}
}
