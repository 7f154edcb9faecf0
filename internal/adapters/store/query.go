package store

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mikey/forensic-intel/internal/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// dialect captures the SQL differences between the supported databases
type dialect struct {
	name        string
	placeholder func(n int) string
	insertNoop  string
	schema      []string
}

func question(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

const recordColumns = "content_hash, message_id, sender, subject, sent_at, data"

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: question,
	insertNoop:  "INSERT OR IGNORE INTO records (" + recordColumns + ") VALUES (?, ?, ?, ?, ?, ?)",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS records (
			content_hash TEXT PRIMARY KEY,
			message_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			subject TEXT NOT NULL,
			sent_at INTEGER,
			data BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_message_id ON records(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_sent_at ON records(sent_at)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			severity TEXT NOT NULL,
			raised_at INTEGER NOT NULL,
			payload BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_raised_at ON alerts(raised_at)`,
	},
}

var mysqlDialect = dialect{
	name:        "mysql",
	placeholder: question,
	insertNoop:  "INSERT IGNORE INTO records (" + recordColumns + ") VALUES (?, ?, ?, ?, ?, ?)",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS records (
			content_hash CHAR(64) PRIMARY KEY,
			message_id VARCHAR(998) NOT NULL,
			sender VARCHAR(320) NOT NULL,
			subject TEXT NOT NULL,
			sent_at BIGINT NULL,
			data LONGBLOB NOT NULL,
			INDEX idx_records_sent_at (sent_at)
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(32) NOT NULL,
			source VARCHAR(255) NOT NULL,
			severity VARCHAR(16) NOT NULL,
			raised_at BIGINT NOT NULL,
			payload BLOB,
			INDEX idx_alerts_raised_at (raised_at)
		)`,
	},
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: dollar,
	insertNoop:  "INSERT INTO records (" + recordColumns + ") VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (content_hash) DO NOTHING",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS records (
			content_hash TEXT PRIMARY KEY,
			message_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			subject TEXT NOT NULL,
			sent_at BIGINT,
			data BYTEA NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_sent_at ON records(sent_at)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			source TEXT NOT NULL,
			severity TEXT NOT NULL,
			raised_at BIGINT NOT NULL,
			payload BYTEA
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_raised_at ON alerts(raised_at)`,
	},
}

func (d dialect) updateRecord() string {
	p := d.placeholder
	return fmt.Sprintf("UPDATE records SET message_id = %s, sender = %s, subject = %s, sent_at = %s, data = %s WHERE content_hash = %s",
		p(1), p(2), p(3), p(4), p(5), p(6))
}

func (d dialect) insertAlert() string {
	p := d.placeholder
	return fmt.Sprintf("INSERT INTO alerts (id, kind, source, severity, raised_at, payload) VALUES (%s, %s, %s, %s, %s, %s)",
		p(1), p(2), p(3), p(4), p(5), p(6))
}

func (d dialect) listAlerts(limit int) (string, []any) {
	q := "SELECT id, kind, source, severity, raised_at, payload FROM alerts ORDER BY raised_at DESC, id"
	if limit > 0 {
		return q + " LIMIT " + d.placeholder(1), []any{limit}
	}
	return q, nil
}

func (d dialect) deleteAlertsBefore() string {
	return "DELETE FROM alerts WHERE raised_at < " + d.placeholder(1)
}

// selectRecords builds the filtered record query ordered by content hash
func (d dialect) selectRecords(f core.RecordFilter) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, d.placeholder(len(args))))
	}

	if f.MessageID != "" {
		add("message_id = %s", f.MessageID)
	}
	if f.ContentHash != "" {
		add("content_hash = %s", f.ContentHash)
	}
	if f.Sender != "" {
		add("sender = %s", strings.ToLower(f.Sender))
	}
	if f.SubjectContains != "" {
		add("LOWER(subject) LIKE %s", "%"+strings.ToLower(f.SubjectContains)+"%")
	}
	if f.Since != nil {
		add("sent_at >= %s", f.Since.UnixNano())
	}
	if f.Until != nil {
		add("sent_at <= %s", f.Until.UnixNano())
	}

	q := "SELECT data FROM records"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	return q + " ORDER BY content_hash", args
}

// recordArgs returns the column values for a record in recordColumns order
func recordArgs(rec core.AnalyzedRecord) ([]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var sentAt *int64
	if rec.Record.SentAt != nil {
		v := rec.Record.SentAt.UnixNano()
		sentAt = &v
	}
	return []any{
		rec.Record.ContentHash,
		rec.Record.MessageID,
		strings.ToLower(rec.Record.Sender.Address),
		rec.Record.Subject,
		sentAt,
		data,
	}, nil
}

func decodeRecord(data []byte) (core.AnalyzedRecord, error) {
	var rec core.AnalyzedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode stored record: %w", err)
	}
	return rec, nil
}

func alertArgs(a core.AlertRecord) []any {
	return []any{a.ID, a.Kind, a.Source, a.Severity, a.RaisedAt.UnixNano(), a.Payload}
}

func alertFromRow(id, kind, source, severity string, raisedAt int64, payload []byte) core.AlertRecord {
	return core.AlertRecord{
		ID:       id,
		Kind:     kind,
		Source:   source,
		Severity: severity,
		RaisedAt: time.Unix(0, raisedAt).UTC(),
		Payload:  payload,
	}
}
