package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexhub/comms-audit/internal/domain"
)

const entryColumns = `id, agent_id, agent_name, agent_email, agent_phone, agent_role, agent_status,
               action, type, recipient, subject, content, ticket_id,
               status, retry_count, created_at, delivery_time, open_time, click_time,
               ip_address, device_info, location, tracking_id, integrity_hash, smtp_response, error_message`

type postgresLogStore struct {
	pool *pgxpool.Pool
}

// NewPostgresLogStore instantiates the Postgres-backed store.
func NewPostgresLogStore(pool *pgxpool.Pool) LogStore {
	return &postgresLogStore{pool: pool}
}

func (r *postgresLogStore) Query(ctx context.Context, filter LogFilter, page, limit int) ([]domain.LogEntry, int, domain.QueryStats, error) {
	clauses, args := buildFilterClauses(filter)
	where := strings.Join(clauses, " AND ")

	statsQuery := fmt.Sprintf(`
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status IN ('SENT','DELIVERED','OPENED','CLICKED')),
               COUNT(*) FILTER (WHERE status = 'FAILED'),
               COUNT(DISTINCT agent_id)
        FROM log_entries WHERE %s`, where)

	var total int
	var stats domain.QueryStats
	if err := r.pool.QueryRow(ctx, statsQuery, args...).Scan(
		&total, &stats.TotalSent, &stats.TotalFailed, &stats.ActiveAgents,
	); err != nil {
		return nil, 0, domain.QueryStats{}, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	pageQuery := fmt.Sprintf(`SELECT %s FROM log_entries WHERE %s
        ORDER BY created_at DESC, id ASC LIMIT %d OFFSET %d`, entryColumns, where, limit, offset)

	rows, err := r.pool.Query(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, domain.QueryStats{}, err
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, domain.QueryStats{}, err
	}
	return entries, total, stats, nil
}

func buildFilterClauses(filter LogFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AgentID != nil {
		args = append(args, *filter.AgentID)
		clauses = append(clauses, fmt.Sprintf("agent_id=$%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("agent_role=$%d", len(args)))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		clauses = append(clauses, fmt.Sprintf("action=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.Search)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(recipient) LIKE %s OR LOWER(subject) LIKE %s OR LOWER(agent_name) LIKE %s)",
			placeholder, placeholder, placeholder))
	}
	return clauses, args
}

func (r *postgresLogStore) GetByID(ctx context.Context, id string) (*domain.LogEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM log_entries WHERE id=$1`, entryColumns)

	var entry domain.LogEntry
	if err := scanEntry(r.pool.QueryRow(ctx, query, id), &entry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	history, err := r.historyFor(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.History = history
	return &entry, nil
}

func (r *postgresLogStore) historyFor(ctx context.Context, id string) ([]domain.HistoryEvent, error) {
	const query = `
        SELECT id, log_id, action, performed_by, details, created_at
        FROM log_history WHERE log_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEvent
	for rows.Next() {
		var ev domain.HistoryEvent
		if err := rows.Scan(&ev.ID, &ev.LogID, &ev.Action, &ev.PerformedBy, &ev.Details, &ev.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

func (r *postgresLogStore) GetByAgent(ctx context.Context, agentID string, limit int) ([]domain.LogEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM log_entries WHERE agent_id=$1
        ORDER BY created_at DESC, id ASC LIMIT $2`, entryColumns)
	rows, err := r.pool.Query(ctx, query, agentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *postgresLogStore) AppendHistory(ctx context.Context, id string, event domain.HistoryEvent) error {
	const query = `
        INSERT INTO log_history (id, log_id, action, performed_by, details, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := r.pool.Exec(ctx, query, event.ID, id, event.Action, event.PerformedBy, event.Details, event.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *postgresLogStore) CompareAndSwapStatus(ctx context.Context, id string, expected, next domain.DeliveryStatus) (*domain.LogEntry, error) {
	// Single atomic UPDATE: the WHERE clause is the compare, row-level locking
	// serializes racing writers, and the retry edge bumps retry_count in the
	// same statement.
	query := fmt.Sprintf(`
        UPDATE log_entries SET
            status=$3,
            retry_count = retry_count + CASE WHEN $2='FAILED' AND $3='PENDING' THEN 1 ELSE 0 END,
            delivery_time = CASE WHEN $3='DELIVERED' THEN NOW() ELSE delivery_time END,
            open_time     = CASE WHEN $3='OPENED' THEN NOW() ELSE open_time END,
            click_time    = CASE WHEN $3='CLICKED' THEN NOW() ELSE click_time END
        WHERE id=$1 AND status=$2
        RETURNING %s`, entryColumns)

	var entry domain.LogEntry
	if err := scanEntry(r.pool.QueryRow(ctx, query, id, expected, next), &entry); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		// Distinguish a lost race from an unknown id.
		var exists bool
		if probeErr := r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM log_entries WHERE id=$1)`, id).Scan(&exists); probeErr != nil {
			return nil, probeErr
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrConflict
	}
	return &entry, nil
}

func (r *postgresLogStore) DailyCounts(ctx context.Context, from, to time.Time) ([]domain.DailyCount, error) {
	const query = `
        SELECT DATE_TRUNC('day', created_at) AS day,
               COUNT(*) FILTER (WHERE status IN ('SENT','DELIVERED','OPENED','CLICKED')),
               COUNT(*) FILTER (WHERE status = 'FAILED')
        FROM log_entries
        WHERE created_at >= $1 AND created_at < $2
        GROUP BY day ORDER BY day ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DailyCount
	for rows.Next() {
		var dc domain.DailyCount
		if err := rows.Scan(&dc.Day, &dc.Sent, &dc.Failed); err != nil {
			return nil, err
		}
		result = append(result, dc)
	}
	return result, rows.Err()
}

func (r *postgresLogStore) TopAgents(ctx context.Context, n int) ([]domain.AgentCount, error) {
	const query = `
        SELECT agent_id, COUNT(*) AS c FROM log_entries
        GROUP BY agent_id ORDER BY c DESC, agent_id ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AgentCount
	for rows.Next() {
		var ac domain.AgentCount
		if err := rows.Scan(&ac.AgentID, &ac.Count); err != nil {
			return nil, err
		}
		result = append(result, ac)
	}
	return result, rows.Err()
}

func (r *postgresLogStore) RoleCounts(ctx context.Context) ([]domain.RoleCount, error) {
	const query = `
        SELECT agent_role, COUNT(*) AS c FROM log_entries
        GROUP BY agent_role ORDER BY c DESC, agent_role ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoleCount
	for rows.Next() {
		var rc domain.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, err
		}
		result = append(result, rc)
	}
	return result, rows.Err()
}

func scanEntry(row pgx.Row, entry *domain.LogEntry) error {
	return row.Scan(
		&entry.ID,
		&entry.AgentID,
		&entry.AgentName,
		&entry.AgentEmail,
		&entry.AgentPhone,
		&entry.AgentRole,
		&entry.AgentStatus,
		&entry.Action,
		&entry.Type,
		&entry.Recipient,
		&entry.Subject,
		&entry.Content,
		&entry.TicketID,
		&entry.Status,
		&entry.RetryCount,
		&entry.Timestamp,
		&entry.DeliveryTime,
		&entry.OpenTime,
		&entry.ClickTime,
		&entry.IPAddress,
		&entry.DeviceInfo,
		&entry.Location,
		&entry.TrackingID,
		&entry.IntegrityHash,
		&entry.SMTPResponse,
		&entry.ErrorMessage,
	)
}

func scanEntries(rows pgx.Rows) ([]domain.LogEntry, error) {
	var result []domain.LogEntry
	for rows.Next() {
		var entry domain.LogEntry
		if err := scanEntry(rows, &entry); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
