// Package agent calls the chat-completion planning service and turns its
// reply into a structured query plan.
package agent

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "stockshock-backend/internal/common/errors"
	"stockshock-backend/internal/common/logger"
	"stockshock-backend/internal/common/validation"
	"stockshock-backend/internal/models"
)

// PlanCache is the read-through cache the client consults before calling
// the planning service. A nil cache disables caching.
type PlanCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type Client struct {
	config *Config
	client *http.Client
	cache  PlanCache
	logger logger.Logger
}

func NewClient(config *Config, cache PlanCache, log logger.Logger) *Client {
	return &Client{
		config: config,
		// No client-level timeout, the per-request context drives deadlines.
		client: &http.Client{},
		cache:  cache,
		logger: log.With(map[string]interface{}{
			"component": "agent",
		}),
	}
}

// Plan asks the planning service what to do with the user's message and
// returns the structured plan. Identical message+theming pairs are served
// from the cache while the TTL lasts.
func (c *Client) Plan(ctx context.Context, message string, currentChaos map[string]interface{}) (*models.QueryPlan, error) {
	cacheKey := c.buildCacheKey(message, currentChaos)
	if c.cache != nil {
		if val, err := c.cache.Get(ctx, cacheKey); err == nil && val != "" {
			var plan models.QueryPlan
			if err := json.Unmarshal([]byte(val), &plan); err == nil {
				c.logger.Debug("plan cache hit", map[string]interface{}{"cacheKey": cacheKey})
				return normalizePlan(&plan), nil
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	content, err := c.complete(ctx, message, currentChaos)
	if err != nil {
		return nil, err
	}

	plan, err := parsePlan(content)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(plan); err == nil {
			if err := c.cache.Set(ctx, cacheKey, data, c.config.CacheTTL); err != nil {
				c.logger.Warn("plan cache write failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	return plan, nil
}

// complete runs the chat-completion call with exponential backoff and
// returns the raw assistant content.
func (c *Client) complete(ctx context.Context, message string, currentChaos map[string]interface{}) (string, error) {
	requestBody := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt()},
			{Role: "user", Content: buildUserPrompt(message, currentChaos)},
		},
		Temperature:    0.2,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	body, err := json.Marshal(requestBody)
	if err != nil {
		return "", apperrors.NewPlanningFailedError(err)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", apperrors.NewPlanningTimeoutError()
			}
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if reqErr != nil {
			return "", apperrors.NewPlanningFailedError(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		if ctx.Err() != nil {
			return "", apperrors.NewPlanningTimeoutError()
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", apperrors.NewPlanningTimeoutError()
		}
		return "", apperrors.NewPlanningFailedError(lastErr)
	}
	if resp == nil {
		return "", apperrors.NewPlanningFailedError(fmt.Errorf("no successful response after retries"))
	}
	defer resp.Body.Close()

	var apiResponse chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", apperrors.NewPlanningFailedError(fmt.Errorf("decode error: %w", err))
	}
	if apiResponse.Error != nil {
		return "", apperrors.NewPlanningFailedError(fmt.Errorf("upstream error: %s", apiResponse.Error.Message))
	}
	if len(apiResponse.Choices) == 0 {
		return "", apperrors.NewPlanningFailedError(fmt.Errorf("empty choices in response"))
	}

	return apiResponse.Choices[0].Message.Content, nil
}

// parsePlan decodes the assistant content, validates it against the plan
// schema, and fills in the optional fields.
func parsePlan(content string) (*models.QueryPlan, error) {
	cleaned := stripFences(content)
	if cleaned == "" {
		return nil, apperrors.NewPlanMalformedError("empty plan content")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, apperrors.NewPlanMalformedError(fmt.Sprintf("not valid JSON: %v", err))
	}
	if err := validation.ValidatePlan(raw); err != nil {
		return nil, apperrors.NewPlanMalformedError(err.Error())
	}

	var plan models.QueryPlan
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, apperrors.NewPlanMalformedError(fmt.Sprintf("plan shape mismatch: %v", err))
	}

	return normalizePlan(&plan), nil
}

func normalizePlan(plan *models.QueryPlan) *models.QueryPlan {
	if plan.SQLQueries == nil {
		plan.SQLQueries = []string{}
	}
	if plan.DashboardSpec == nil {
		plan.DashboardSpec = map[string]interface{}{}
	}
	return plan
}

// stripFences removes a surrounding markdown code fence, which some
// models emit even when told not to.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func (c *Client) buildCacheKey(message string, currentChaos map[string]interface{}) string {
	h := sha256.New()
	h.Write([]byte(c.config.Model))
	h.Write([]byte{0})
	h.Write([]byte(message))
	if len(currentChaos) > 0 {
		if data, err := json.Marshal(currentChaos); err == nil {
			h.Write([]byte{0})
			h.Write(data)
		}
	}
	return "plan:" + hex.EncodeToString(h.Sum(nil))
}
