package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pricecase/internal"
)

const dateLayout = "2006-01-02"

type DB struct {
	conn *sql.DB
}

// Run is one pass over the mailbox.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       *time.Time
	DateFrom         string
	DateTo           string
	DryRun           bool
	Total            int
	Processed        int
	SkippedBusiness  int
	SkippedTechnical int
	CaseRows         int
	ReportName       string
	LogName          string
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  startedAt TEXT NOT NULL,
  finishedAt TEXT,
  dateFrom TEXT NOT NULL,
  dateTo TEXT NOT NULL,
  dryRun INTEGER NOT NULL DEFAULT 0,
  total INTEGER NOT NULL DEFAULT 0,
  processed INTEGER NOT NULL DEFAULT 0,
  skippedBusiness INTEGER NOT NULL DEFAULT 0,
  skippedTechnical INTEGER NOT NULL DEFAULT 0,
  caseRows INTEGER NOT NULL DEFAULT 0,
  reportName TEXT,
  logName TEXT
);

CREATE TABLE IF NOT EXISTS email_results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  messageId TEXT NOT NULL,
  sender TEXT,
  subject TEXT,
  receivedAt TEXT,
  status TEXT NOT NULL,
  errorType TEXT,
  errorMessage TEXT,
  caseCount INTEGER NOT NULL DEFAULT 0,
  markedAsRead INTEGER NOT NULL DEFAULT 0,
  rawRef TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(runId, messageId),
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_email_results_messageId ON email_results(messageId);

CREATE TABLE IF NOT EXISTS case_rows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  messageId TEXT NOT NULL,
  position INTEGER NOT NULL,
  store TEXT NOT NULL,
  ean TEXT NOT NULL,
  documentDate TEXT,
  deliveryDate TEXT,
  orderDate TEXT,
  supplierPrice REAL,
  internalPrice REAL,
  supplierName TEXT,
  invoiceNumber TEXT,
  sender TEXT,
  emailRef TEXT,
  comments TEXT,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_case_rows_runId ON case_rows(runId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(run Run) error {
	_, err := d.conn.Exec(`
INSERT INTO runs (id, startedAt, dateFrom, dateTo, dryRun) VALUES (?, ?, ?, ?, ?)
`, run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.DateFrom, run.DateTo, run.DryRun)
	return err
}

// FinishRun stores the counts and artifact names of a completed run.
func (d *DB) FinishRun(run Run) error {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	res, err := d.conn.Exec(`
UPDATE runs SET
  finishedAt = ?, total = ?, processed = ?, skippedBusiness = ?, skippedTechnical = ?,
  caseRows = ?, reportName = ?, logName = ?
WHERE id = ?
`, finished.Format(time.RFC3339), run.Total, run.Processed, run.SkippedBusiness, run.SkippedTechnical,
		run.CaseRows, nullString(run.ReportName), nullString(run.LogName), run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

func (d *DB) InsertEmailResult(runID string, result internal.ProcessResult, rawRef string) error {
	var received *string
	if !result.ReceivedAt.IsZero() {
		v := result.ReceivedAt.UTC().Format(time.RFC3339)
		received = &v
	}
	_, err := d.conn.Exec(`
INSERT INTO email_results (runId, messageId, sender, subject, receivedAt, status, errorType, errorMessage, caseCount, markedAsRead, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(runId, messageId) DO UPDATE SET
  status = excluded.status,
  errorType = excluded.errorType,
  errorMessage = excluded.errorMessage,
  caseCount = excluded.caseCount,
  markedAsRead = excluded.markedAsRead,
  rawRef = excluded.rawRef
`, runID, result.MessageID, result.Sender, result.Subject, received, string(result.Status),
		nullString(string(result.ErrorType)), nullString(result.ErrorMessage), len(result.CaseRows), result.MarkedAsRead, nullString(rawRef))
	return err
}

func (d *DB) InsertCaseRows(runID, messageID string, rows []internal.CaseRow) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var position int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(position), -1) + 1 FROM case_rows WHERE runId = ?`, runID).Scan(&position); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO case_rows (
  runId, messageId, position, store, ean, documentDate, deliveryDate, orderDate,
  supplierPrice, internalPrice, supplierName, invoiceNumber, sender, emailRef, comments
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.Exec(
			runID, messageID, position+i, row.Store, row.EAN,
			dateValue(row.DocumentDate), dateValue(row.DeliveryDate), dateValue(row.OrderDate),
			row.SupplierPrice, row.InternalPrice, row.SupplierName, row.InvoiceNumber,
			row.Sender, row.EmailRef, row.Comments,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetCaseRows returns the rows of a run in report order.
func (d *DB) GetCaseRows(runID string) ([]internal.CaseRow, error) {
	rows, err := d.conn.Query(`
SELECT store, ean, documentDate, deliveryDate, orderDate, supplierPrice, internalPrice,
  supplierName, invoiceNumber, sender, emailRef, comments
FROM case_rows
WHERE runId = ?
ORDER BY position ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.CaseRow
	for rows.Next() {
		var row internal.CaseRow
		var documentDate, deliveryDate, orderDate *string
		var sender, emailRef, comments sql.NullString
		if err := rows.Scan(
			&row.Store,
			&row.EAN,
			&documentDate,
			&deliveryDate,
			&orderDate,
			&row.SupplierPrice,
			&row.InternalPrice,
			&row.SupplierName,
			&row.InvoiceNumber,
			&sender,
			&emailRef,
			&comments,
		); err != nil {
			return nil, err
		}
		row.DocumentDate = parseDate(documentDate)
		row.DeliveryDate = parseDate(deliveryDate)
		row.OrderDate = parseDate(orderDate)
		row.Sender = sender.String
		row.EmailRef = emailRef.String
		row.Comments = comments.String
		out = append(out, row)
	}

	return out, rows.Err()
}

// ListRuns returns the newest runs first.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, startedAt, finishedAt, dateFrom, dateTo, dryRun, total, processed,
  skippedBusiness, skippedTechnical, caseRows, reportName, logName
FROM runs
ORDER BY startedAt DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var started string
		var finished, reportName, logName sql.NullString
		if err := rows.Scan(
			&run.ID, &started, &finished, &run.DateFrom, &run.DateTo, &run.DryRun,
			&run.Total, &run.Processed, &run.SkippedBusiness, &run.SkippedTechnical, &run.CaseRows,
			&reportName, &logName,
		); err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished.Valid {
			if t, err := time.Parse(time.RFC3339, finished.String); err == nil {
				run.FinishedAt = &t
			}
		}
		run.ReportName = reportName.String
		run.LogName = logName.String
		out = append(out, run)
	}

	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func dateValue(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(dateLayout)
	return &v
}

func parseDate(v *string) *time.Time {
	if v == nil {
		return nil
	}
	t, err := time.Parse(dateLayout, *v)
	if err != nil {
		return nil
	}
	return &t
}
