package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foxseedlab/madoguchin/internal/call"
	"github.com/foxseedlab/madoguchin/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool         *pgxpool.Pool
	defaultModel string
}

func NewPostgresRepository(pool *pgxpool.Pool, defaultModel string) repository.Repository {
	return &PostgresRepository{pool: pool, defaultModel: defaultModel}
}

func (r *PostgresRepository) CreateCall(ctx context.Context, input repository.CreateCallInput) (*call.Call, error) {
	c := &call.Call{
		ID:        input.ID,
		Title:     "New Call",
		Status:    call.StatusPending,
		ModelName: input.ModelName,
		StartedAt: input.StartedAt,
		Messages:  []call.Message{},
		ToolCalls: []call.ToolCall{},
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO calls (id, title, status, model_name, started_at, messages, tool_calls, usage_stats, cost_stats)
		 VALUES ($1, $2, $3, $4, $5, '[]', '[]', $6, $7)`,
		c.ID, c.Title, string(c.Status), c.ModelName, c.StartedAt, mustJSON(c.Usage), mustJSON(c.Cost))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) GetCall(ctx context.Context, id string) (*call.Call, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, title, status, model_name, started_at, ended_at, messages, tool_calls, summary, usage_stats, cost_stats, error_message
		 FROM calls WHERE id = $1`,
		id)
	var c call.Call
	var status string
	var endedAt *time.Time
	var messages, toolCalls, usageJSON, costJSON []byte
	err := row.Scan(&c.ID, &c.Title, &status, &c.ModelName, &c.StartedAt, &endedAt, &messages, &toolCalls, &c.Summary, &usageJSON, &costJSON, &c.ErrorMessage)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	c.Status = call.Status(status)
	c.EndedAt = endedAt
	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return nil, fmt.Errorf("decode messages for call %s: %w", id, err)
	}
	if err := json.Unmarshal(toolCalls, &c.ToolCalls); err != nil {
		return nil, fmt.Errorf("decode tool calls for call %s: %w", id, err)
	}
	if err := json.Unmarshal(usageJSON, &c.Usage); err != nil {
		return nil, fmt.Errorf("decode usage for call %s: %w", id, err)
	}
	if err := json.Unmarshal(costJSON, &c.Cost); err != nil {
		return nil, fmt.Errorf("decode cost for call %s: %w", id, err)
	}
	return &c, nil
}

func (r *PostgresRepository) SaveCall(ctx context.Context, c *call.Call) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE calls SET
			title = $2,
			status = $3,
			model_name = $4,
			ended_at = $5,
			messages = $6,
			tool_calls = $7,
			summary = $8,
			usage_stats = $9,
			cost_stats = $10,
			error_message = $11,
			updated_at = NOW()
		 WHERE id = $1`,
		c.ID, c.Title, string(c.Status), c.ModelName, c.EndedAt,
		mustJSON(c.Messages), mustJSON(c.ToolCalls), c.Summary,
		mustJSON(c.Usage), mustJSON(c.Cost), c.ErrorMessage)
	return err
}

func (r *PostgresRepository) UpdateCallStatus(ctx context.Context, id string, status call.Status, errorMessage string, endedAt *time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE calls SET status = $2, error_message = $3, ended_at = COALESCE($4, ended_at), updated_at = NOW() WHERE id = $1`,
		id, string(status), errorMessage, endedAt)
	return err
}

func (r *PostgresRepository) LoadSettings(ctx context.Context) (call.Settings, error) {
	row := r.pool.QueryRow(ctx, `SELECT payload FROM settings WHERE id = 1`)
	var payload []byte
	err := row.Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return r.bootstrapSettings(ctx)
		}
		return call.Settings{}, err
	}
	var s call.Settings
	if err := json.Unmarshal(payload, &s); err != nil {
		return call.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) bootstrapSettings(ctx context.Context) (call.Settings, error) {
	s := call.DefaultSettings(r.defaultModel)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO settings (id, payload) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`,
		mustJSON(s))
	if err != nil {
		return call.Settings{}, err
	}
	return s, nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal %T: %v", v, err))
	}
	return b
}
