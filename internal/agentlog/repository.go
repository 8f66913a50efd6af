package agentlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"relay/internal/constants"
)

type Repository interface {
	Insert(ctx context.Context, entry *LogEntry) error
	ListBySession(ctx context.Context, sessionID string, filter ListFilter) ([]LogEntry, error)
	ListAllBySession(ctx context.Context, sessionID string) ([]LogEntry, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	AgentPerformanceReport(ctx context.Context) ([]AgentPerformance, error)
	UpdateSessionSummary(ctx context.Context, sessionID string, summary *Summary) error
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, entry *LogEntry) error {
	resultData, err := marshalNullable(entry.ResultData)
	if err != nil {
		return fmt.Errorf("failed to marshal result data: %w", err)
	}
	metricsData, err := marshalNullable(entry.MetricsData)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics data: %w", err)
	}

	query := `
		INSERT INTO agent_logs (
			session_id, message_id, agent_type, agent_name, message_type,
			content, region, source, is_final, result_data, error_info,
			metrics_data, processing_stage, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`

	row := r.db.QueryRowContext(ctx, query,
		entry.SessionID, entry.MessageID, entry.AgentType, entry.AgentName,
		entry.MessageType, entry.Content, entry.Region, entry.Source,
		entry.IsFinal, resultData, entry.ErrorInfo, metricsData,
		entry.ProcessingStage, entry.Timestamp,
	)
	if err := row.Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string, filter ListFilter) ([]LogEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}

	query := `
		SELECT id, session_id, message_id, agent_type, agent_name, message_type,
		       content, region, source, is_final, result_data, error_info,
		       metrics_data, processing_stage, timestamp, created_at
		FROM agent_logs
		WHERE session_id = $1
	`
	args := []interface{}{sessionID}

	if filter.AgentType != "" {
		args = append(args, filter.AgentType)
		query += fmt.Sprintf(" AND agent_type = $%d", len(args))
	}
	if filter.MessageType != "" {
		args = append(args, filter.MessageType)
		query += fmt.Sprintf(" AND message_type = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY timestamp ASC, id ASC LIMIT $%d", len(args))

	return r.queryEntries(ctx, query, args...)
}

// ListAllBySession loads a session's complete log in timestamp order. The
// aggregation paths use it so a summary always covers every entry; the paging
// cap stays on the HTTP listing path only.
func (r *PostgresRepository) ListAllBySession(ctx context.Context, sessionID string) ([]LogEntry, error) {
	query := `
		SELECT id, session_id, message_id, agent_type, agent_name, message_type,
		       content, region, source, is_final, result_data, error_info,
		       metrics_data, processing_stage, timestamp, created_at
		FROM agent_logs
		WHERE session_id = $1
		ORDER BY timestamp ASC, id ASC
	`
	return r.queryEntries(ctx, query, sessionID)
}

func (r *PostgresRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate log entries: %w", err)
	}

	return entries, nil
}

func (r *PostgresRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM agent_logs WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete log entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted entries: %w", err)
	}
	return deleted, nil
}

// AgentPerformanceReport aggregates activity per agent type across all
// sessions. Rates are percentages over the agent's total message count.
func (r *PostgresRepository) AgentPerformanceReport(ctx context.Context) ([]AgentPerformance, error) {
	query := `
		SELECT agent_type,
		       COUNT(DISTINCT session_id) AS sessions_served,
		       COUNT(*) AS total_messages,
		       ROUND(100.0 * COUNT(*) FILTER (WHERE message_type = 'error') / COUNT(*), 2) AS error_rate,
		       ROUND(100.0 * COUNT(*) FILTER (WHERE message_type != 'error') / COUNT(*), 2) AS success_rate,
		       COUNT(DISTINCT processing_stage) FILTER (WHERE processing_stage != '') AS distinct_stages,
		       MIN(timestamp) AS first_activity,
		       MAX(timestamp) AS last_activity
		FROM agent_logs
		GROUP BY agent_type
		ORDER BY total_messages DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent performance: %w", err)
	}
	defer rows.Close()

	var report []AgentPerformance
	for rows.Next() {
		var perf AgentPerformance
		if err := rows.Scan(
			&perf.AgentType, &perf.SessionsServed, &perf.TotalMessages,
			&perf.ErrorRate, &perf.SuccessRate, &perf.DistinctStages,
			&perf.FirstActivity, &perf.LastActivity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan agent performance: %w", err)
		}
		report = append(report, perf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agent performance: %w", err)
	}

	return report, nil
}

// UpdateSessionSummary upserts the denormalized summary columns for a
// session. The in-memory registry stays authoritative for live state; this
// row is what survives a restart.
func (r *PostgresRepository) UpdateSessionSummary(ctx context.Context, sessionID string, summary *Summary) error {
	summaryData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	keyMetrics, err := json.Marshal(summary.KeyMetrics)
	if err != nil {
		return fmt.Errorf("failed to marshal key metrics: %w", err)
	}

	query := `
		INSERT INTO sessions (id, agent_logs_summary, key_metrics, processing_stages, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			agent_logs_summary = EXCLUDED.agent_logs_summary,
			key_metrics = EXCLUDED.key_metrics,
			processing_stages = EXCLUDED.processing_stages,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		sessionID, summaryData, keyMetrics,
		pq.Array(summary.ProcessingStages), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session summary: %w", err)
	}
	return nil
}

func scanEntry(rows *sql.Rows) (LogEntry, error) {
	var (
		entry       LogEntry
		resultData  []byte
		metricsData []byte
	)

	if err := rows.Scan(
		&entry.ID, &entry.SessionID, &entry.MessageID, &entry.AgentType,
		&entry.AgentName, &entry.MessageType, &entry.Content, &entry.Region,
		&entry.Source, &entry.IsFinal, &resultData, &entry.ErrorInfo,
		&metricsData, &entry.ProcessingStage, &entry.Timestamp, &entry.CreatedAt,
	); err != nil {
		return LogEntry{}, fmt.Errorf("failed to scan log entry: %w", err)
	}

	if len(resultData) > 0 {
		if err := json.Unmarshal(resultData, &entry.ResultData); err != nil {
			return LogEntry{}, fmt.Errorf("failed to unmarshal result data: %w", err)
		}
	}
	if len(metricsData) > 0 {
		if err := json.Unmarshal(metricsData, &entry.MetricsData); err != nil {
			return LogEntry{}, fmt.Errorf("failed to unmarshal metrics data: %w", err)
		}
	}

	return entry, nil
}

func marshalNullable(data map[string]interface{}) (interface{}, error) {
	if data == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}
