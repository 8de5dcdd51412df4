package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	decision_id     TEXT PRIMARY KEY,
	decision_type   TEXT NOT NULL,
	action          TEXT,
	is_safe         INTEGER NOT NULL,
	severity        TEXT NOT NULL,
	output_json     TEXT,
	features_json   TEXT,
	violations_json TEXT,
	warnings_json   TEXT,
	created_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_type
	ON decision_log(decision_type, created_at);
`

// #endregion schema

// #region store-struct

// Store persists decision records in SQLite. It is the durable counterpart
// of the safety controller's in-memory violation history.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region log-decision

// LogDecision inserts one record. A missing ID or timestamp is filled in.
func (s *Store) LogDecision(rec DecisionRecord) (DecisionRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	outputJSON, err := json.Marshal(rec.Output)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("marshal output: %w", err)
	}
	featuresJSON, err := json.Marshal(rec.Features)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("marshal features: %w", err)
	}
	violationsJSON, err := json.Marshal(rec.Violations)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("marshal violations: %w", err)
	}
	warningsJSON, err := json.Marshal(rec.Warnings)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("marshal warnings: %w", err)
	}

	safe := 0
	if rec.IsSafe {
		safe = 1
	}

	_, err = s.db.Exec(
		`INSERT INTO decision_log
		 (decision_id, decision_type, action, is_safe, severity, output_json, features_json, violations_json, warnings_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DecisionType, rec.Action, safe, rec.Severity,
		string(outputJSON), string(featuresJSON), string(violationsJSON), string(warningsJSON),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return DecisionRecord{}, fmt.Errorf("insert decision: %w", err)
	}
	return rec, nil
}

// #endregion log-decision

// #region queries

// RecentDecisions returns the most recent records, newest first. An empty
// decisionType matches every type.
func (s *Store) RecentDecisions(decisionType string, limit int) ([]DecisionRecord, error) {
	query := `SELECT decision_id, decision_type, action, is_safe, severity,
	                 output_json, features_json, violations_json, warnings_json, created_at
	          FROM decision_log`
	args := []any{}
	if decisionType != "" {
		query += ` WHERE decision_type = ?`
		args = append(args, decisionType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecentViolations returns the most recent unsafe records, newest first.
func (s *Store) RecentViolations(limit int) ([]DecisionRecord, error) {
	rows, err := s.db.Query(
		`SELECT decision_id, decision_type, action, is_safe, severity,
		        output_json, features_json, violations_json, warnings_json, created_at
		 FROM decision_log WHERE is_safe = 0
		 ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// CountByType returns the total decisions recorded per type.
func (s *Store) CountByType() (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT decision_type, COUNT(*) FROM decision_log GROUP BY decision_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("count decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var decisionType string
		var n int
		if err := rows.Scan(&decisionType, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[decisionType] = n
	}
	return counts, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]DecisionRecord, error) {
	var records []DecisionRecord
	for rows.Next() {
		var rec DecisionRecord
		var safe int
		var outputJSON, featuresJSON, violationsJSON, warningsJSON sql.NullString
		var createdStr string

		if err := rows.Scan(&rec.ID, &rec.DecisionType, &rec.Action, &safe, &rec.Severity,
			&outputJSON, &featuresJSON, &violationsJSON, &warningsJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.IsSafe = safe == 1
		if outputJSON.Valid && outputJSON.String != "" {
			if err := json.Unmarshal([]byte(outputJSON.String), &rec.Output); err != nil {
				return nil, fmt.Errorf("unmarshal output: %w", err)
			}
		}
		if featuresJSON.Valid && featuresJSON.String != "" {
			if err := json.Unmarshal([]byte(featuresJSON.String), &rec.Features); err != nil {
				return nil, fmt.Errorf("unmarshal features: %w", err)
			}
		}
		if violationsJSON.Valid {
			if err := json.Unmarshal([]byte(violationsJSON.String), &rec.Violations); err != nil {
				return nil, fmt.Errorf("unmarshal violations: %w", err)
			}
		}
		if warningsJSON.Valid {
			if err := json.Unmarshal([]byte(warningsJSON.String), &rec.Warnings); err != nil {
				return nil, fmt.Errorf("unmarshal warnings: %w", err)
			}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion queries
