// Package archive records chat transcripts in SQLite so conversations
// can be reviewed after the session ends. The live conversation state
// never lives here; the archive is append-only.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rmehran/campuschat/internal/model"

	_ "modernc.org/sqlite"
)

type Archive struct {
	db *sql.DB
}

func New(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_token TEXT NOT NULL,
		student_id TEXT NOT NULL DEFAULT '',
		module TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_session
		ON transcripts(session_token);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Record appends one chat message to the transcript log.
func (a *Archive) Record(sessionToken, studentID, module string, msg model.Message) error {
	at := msg.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	_, err := a.db.Exec(
		`INSERT INTO transcripts (session_token, student_id, module, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionToken, studentID, module, string(msg.Role), msg.Content, at,
	)
	return err
}

// Entry is one archived chat message.
type Entry struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript is one session's archived conversation.
type Transcript struct {
	SessionToken string  `json:"session_token"`
	StudentID    string  `json:"student_id"`
	Module       string  `json:"module"`
	Entries      []Entry `json:"entries"`
}

// ExportAll returns every archived conversation grouped by session, in
// insertion order.
func (a *Archive) ExportAll() ([]Transcript, error) {
	rows, err := a.db.Query(
		`SELECT id, session_token, student_id, module, role, content, created_at
		 FROM transcripts ORDER BY session_token, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []Transcript
	var cur *Transcript
	for rows.Next() {
		var (
			e       Entry
			token   string
			student string
			module  string
		)
		if err := rows.Scan(&e.ID, &token, &student, &module, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, err
		}
		if cur == nil || cur.SessionToken != token {
			transcripts = append(transcripts, Transcript{
				SessionToken: token,
				StudentID:    student,
				Module:       module,
			})
			cur = &transcripts[len(transcripts)-1]
		}
		cur.Entries = append(cur.Entries, e)
	}
	return transcripts, rows.Err()
}

// Count returns the total number of archived messages.
func (a *Archive) Count() (int, error) {
	var count int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM transcripts`).Scan(&count)
	return count, err
}

// SessionCount returns the number of distinct archived sessions.
func (a *Archive) SessionCount() (int, error) {
	var count int
	err := a.db.QueryRow(`SELECT COUNT(DISTINCT session_token) FROM transcripts`).Scan(&count)
	return count, err
}
