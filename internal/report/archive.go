package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/Amita-5/honeypot-scam-detector/pkg/types"
)

// Archive keeps finalized reports in a local SQLite database so intelligence
// survives restarts even when the evaluation endpoint is unreachable.
type Archive struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

// ArchivedReport is one stored row.
type ArchivedReport struct {
	ID        string
	Report    types.IntelligenceReport
	CreatedAt time.Time
}

// NewArchive opens or creates the archive database at the given path.
func NewArchive(dbPath string) (*Archive, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	a := &Archive{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		id             TEXT PRIMARY KEY,
		session_id     TEXT NOT NULL,
		scam_detected  INTEGER NOT NULL,
		scam_type      TEXT,
		indicators     TEXT NOT NULL,
		requested_data TEXT NOT NULL,
		channel        TEXT,
		language       TEXT,
		locale         TEXT,
		total_turns    INTEGER NOT NULL,
		created_at     INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_session ON reports(session_id);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at DESC);
	`
	_, err := a.db.Exec(schema)
	return err
}

func (a *Archive) newID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), a.entropy).String()
}

// Save stores one finalized report.
func (a *Archive) Save(report types.IntelligenceReport) error {
	indicators, err := json.Marshal(report.ScamIndicators)
	if err != nil {
		return err
	}
	requested, err := json.Marshal(report.RequestedSensitiveData)
	if err != nil {
		return err
	}

	_, err = a.db.Exec(
		`INSERT INTO reports (id, session_id, scam_detected, scam_type, indicators, requested_data, channel, language, locale, total_turns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.newID(),
		report.SessionID,
		boolToInt(report.ScamDetected),
		report.ScamType,
		string(indicators),
		string(requested),
		report.Channel,
		report.Language,
		report.Locale,
		report.TotalTurns,
		time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// Recent returns the newest reports, most recent first.
func (a *Archive) Recent(limit int) ([]ArchivedReport, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.Query(
		`SELECT id, session_id, scam_detected, scam_type, indicators, requested_data, channel, language, locale, total_turns, created_at
		 FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchivedReport
	for rows.Next() {
		var (
			rec        ArchivedReport
			detected   int
			indicators string
			requested  string
			createdAt  int64
		)
		if err := rows.Scan(&rec.ID, &rec.Report.SessionID, &detected, &rec.Report.ScamType,
			&indicators, &requested, &rec.Report.Channel, &rec.Report.Language,
			&rec.Report.Locale, &rec.Report.TotalTurns, &createdAt); err != nil {
			return nil, err
		}
		rec.Report.ScamDetected = detected != 0
		if err := json.Unmarshal([]byte(indicators), &rec.Report.ScamIndicators); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(requested), &rec.Report.RequestedSensitiveData); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
