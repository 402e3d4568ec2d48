package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// QueryOpts configures event queries.
type QueryOpts struct {
	Limit   int    // max results (0 = a sane default)
	Purpose string // filter by purpose ("" = all)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// TurnEventData captures one committed conversation turn.
type TurnEventData struct {
	SessionID  string
	Module     string
	Transcript string
	Reply      string
	Translated bool
	AudioOK    bool
	LatencyMs  int64
}

// TurnStats aggregates turn activity for the stats subcommand.
type TurnStats struct {
	Turns        int
	Sessions     int
	Translated   int
	AudioOK      int
	ByModule     map[string]int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// AppendTurn records a committed conversation turn.
	AppendTurn(ctx context.Context, data TurnEventData) error

	// QueryLLMEvents returns recent LLM events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns one event with full request/response bodies,
	// or nil if the ID is unknown.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	// Stats aggregates turn events.
	Stats(ctx context.Context) (*TurnStats, error)
}

type eventRepo struct {
	db *sql.DB
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO llm_events
			(timestamp, provider, model, purpose, input_tokens, output_tokens,
			 latency_ms, success, error_message, request_body, response_body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), data.Provider, data.Model, data.Purpose,
		data.InputTokens, data.OutputTokens, data.LatencyMs,
		boolToInt(data.Success), data.ErrorMessage, data.RequestBody, data.ResponseBody,
	)
	if err != nil {
		return fmt.Errorf("insert llm event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendTurn(ctx context.Context, data TurnEventData) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO turn_events
			(timestamp, session_id, module, transcript, reply, translated, audio_ok, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), data.SessionID, data.Module, data.Transcript,
		data.Reply, boolToInt(data.Translated), boolToInt(data.AudioOK), data.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("insert turn event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, timestamp, provider, model, purpose, input_tokens,
		       output_tokens, latency_ms, success, error_message
		FROM llm_events`
	args := []any{}
	if opts.Purpose != "" {
		query += ` WHERE purpose = ?`
		args = append(args, opts.Purpose)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm events: %w", err)
	}
	defer rows.Close()

	var events []LLMRequestEvent
	for rows.Next() {
		var e LLMRequestEvent
		var ts int64
		var success int
		if err := rows.Scan(&e.ID, &ts, &e.Provider, &e.Model, &e.Purpose,
			&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &success, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan llm event: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.Success = success != 0
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, timestamp, provider, model, purpose, input_tokens,
		       output_tokens, latency_ms, success, error_message,
		       request_body, response_body
		FROM llm_events WHERE id = ?`, id)

	var e LLMRequestEvent
	var ts int64
	var success int
	err := row.Scan(&e.ID, &ts, &e.Provider, &e.Model, &e.Purpose,
		&e.InputTokens, &e.OutputTokens, &e.LatencyMs, &success,
		&e.ErrorMessage, &e.RequestBody, &e.ResponseBody)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get llm event: %w", err)
	}
	e.Timestamp = time.Unix(ts, 0)
	e.Success = success != 0
	return &e, nil
}

func (r *eventRepo) Stats(ctx context.Context) (*TurnStats, error) {
	stats := &TurnStats{ByModule: make(map[string]int)}

	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT session_id),
		       COALESCE(SUM(translated), 0), COALESCE(SUM(audio_ok), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM turn_events`)
	var avg float64
	if err := row.Scan(&stats.Turns, &stats.Sessions, &stats.Translated, &stats.AudioOK, &avg); err != nil {
		return nil, fmt.Errorf("aggregate turn events: %w", err)
	}
	stats.AvgLatencyMs = int64(avg)

	rows, err := r.db.QueryContext(ctx, `
		SELECT module, COUNT(*) FROM turn_events GROUP BY module`)
	if err != nil {
		return nil, fmt.Errorf("group turn events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var module string
		var n int
		if err := rows.Scan(&module, &n); err != nil {
			return nil, fmt.Errorf("scan module count: %w", err)
		}
		stats.ByModule[module] = n
	}
	return stats, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// NopEventRepo discards all events. Used when no database is configured
// (e.g. the talk command with --no-db).
type NopEventRepo struct{}

func (NopEventRepo) AppendLLMRequest(context.Context, LLMRequestEventData) error { return nil }
func (NopEventRepo) AppendTurn(context.Context, TurnEventData) error             { return nil }
func (NopEventRepo) QueryLLMEvents(context.Context, QueryOpts) ([]LLMRequestEvent, error) {
	return nil, nil
}
func (NopEventRepo) GetLLMEvent(context.Context, int64) (*LLMRequestEvent, error) {
	return nil, nil
}
func (NopEventRepo) Stats(context.Context) (*TurnStats, error) {
	return &TurnStats{ByModule: map[string]int{}}, nil
}
