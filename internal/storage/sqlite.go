package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for contacts, interactions,
// mentioned people, and follow-ups.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "reconnect.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// --- time column helpers ---

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTimeCol(col string, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %s: %w", col, err)
	}
	return t, nil
}

func parseTimeColPtr(col string, ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTimeCol(col, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Day-granularity columns (follow-up due dates) use a plain date form.
const dayLayout = "2006-01-02"

func fmtDayPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(dayLayout)
}

func parseDayColPtr(col string, ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dayLayout, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", col, err)
	}
	return &t, nil
}

func nullStrPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func strPtrVal(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// --- Contacts ---

func (s *Store) InsertContact(c Contact) error {
	var cadence any
	if c.CadenceDays != nil {
		cadence = *c.CadenceDays
	}
	_, err := s.db.Exec(`
		INSERT INTO contacts (id, owner_id, display_name, phone, email, cadence_days, next_checkin_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.DisplayName, c.Phone, c.Email, cadence,
		fmtTimePtr(c.NextCheckin), c.Notes, fmtTime(c.CreatedAt),
	)
	return err
}

const contactCols = "id, owner_id, display_name, phone, email, cadence_days, next_checkin_date, notes, created_at"

func scanContact(row interface{ Scan(...any) error }) (Contact, error) {
	var c Contact
	var cadence sql.NullInt64
	var next sql.NullString
	var createdAt string
	err := row.Scan(&c.ID, &c.OwnerID, &c.DisplayName, &c.Phone, &c.Email, &cadence, &next, &c.Notes, &createdAt)
	if err != nil {
		return Contact{}, err
	}
	if cadence.Valid {
		v := int(cadence.Int64)
		c.CadenceDays = &v
	}
	if c.NextCheckin, err = parseTimeColPtr("next_checkin_date", next); err != nil {
		return Contact{}, err
	}
	if c.CreatedAt, err = parseTimeCol("created_at", createdAt); err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *Store) GetContact(id string) (Contact, error) {
	row := s.db.QueryRow(`SELECT `+contactCols+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return Contact{}, ErrNotFound
	}
	return c, err
}

// ListContacts returns all of an owner's contacts, system contacts included,
// in creation order. Callers apply their own sort.
func (s *Store) ListContacts(owner string) ([]Contact, error) {
	rows, err := s.db.Query(`
		SELECT `+contactCols+` FROM contacts
		WHERE owner_id = ? ORDER BY created_at ASC, id ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// ContactsByName returns an owner's contacts with the given display name,
// earliest created first. More than one result for a reserved name means
// reconciliation is needed.
func (s *Store) ContactsByName(owner, name string) ([]Contact, error) {
	rows, err := s.db.Query(`
		SELECT `+contactCols+` FROM contacts
		WHERE owner_id = ? AND display_name = ?
		ORDER BY created_at ASC, id ASC`, owner, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *Store) DeleteContacts(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.Repeat(",?", len(ids)-1)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.Exec(`DELETE FROM contacts WHERE id IN (?`+placeholders+`)`, args...)
	return err
}

// LastInteractionTimes returns, per contact id, the most recent interaction
// occurrence for the owner. Contacts with no interactions are absent.
func (s *Store) LastInteractionTimes(owner string) (map[string]time.Time, error) {
	rows, err := s.db.Query(`
		SELECT contact_id, MAX(occurred_at) FROM interactions
		WHERE owner_id = ? GROUP BY contact_id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]time.Time)
	for rows.Next() {
		var id, occurred string
		if err := rows.Scan(&id, &occurred); err != nil {
			return nil, err
		}
		t, err := parseTimeCol("occurred_at", occurred)
		if err != nil {
			return nil, err
		}
		result[id] = t
	}
	return result, rows.Err()
}

// --- Interactions ---

func (s *Store) InsertInteraction(i Interaction) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions (id, owner_id, contact_id, transcript, occurred_at, extracted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.OwnerID, i.ContactID, i.Transcript, fmtTime(i.OccurredAt), i.Extracted, fmtTime(i.CreatedAt),
	)
	return err
}

const interactionCols = "id, owner_id, contact_id, transcript, occurred_at, extracted, created_at"

func scanInteraction(row interface{ Scan(...any) error }) (Interaction, error) {
	var i Interaction
	var occurredAt, createdAt string
	err := row.Scan(&i.ID, &i.OwnerID, &i.ContactID, &i.Transcript, &occurredAt, &i.Extracted, &createdAt)
	if err != nil {
		return Interaction{}, err
	}
	if i.OccurredAt, err = parseTimeCol("occurred_at", occurredAt); err != nil {
		return Interaction{}, err
	}
	if i.CreatedAt, err = parseTimeCol("created_at", createdAt); err != nil {
		return Interaction{}, err
	}
	return i, nil
}

func (s *Store) GetInteraction(id string) (Interaction, error) {
	row := s.db.QueryRow(`SELECT `+interactionCols+` FROM interactions WHERE id = ?`, id)
	i, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return Interaction{}, ErrNotFound
	}
	return i, err
}

func (s *Store) ListInteractionsByContact(contactID string) ([]Interaction, error) {
	rows, err := s.db.Query(`
		SELECT `+interactionCols+` FROM interactions
		WHERE contact_id = ? ORDER BY occurred_at DESC`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

func (s *Store) ListRecentInteractions(owner string, limit int) ([]Interaction, error) {
	rows, err := s.db.Query(`
		SELECT `+interactionCols+` FROM interactions
		WHERE owner_id = ? ORDER BY occurred_at DESC LIMIT ?`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, i)
	}
	return results, rows.Err()
}

// ReassignInteraction moves an interaction to another contact. The
// transcript and occurrence time are never updated.
func (s *Store) ReassignInteraction(id, contactID string) error {
	res, err := s.db.Exec(`UPDATE interactions SET contact_id = ? WHERE id = ?`, contactID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountInteractionsSince(owner string, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM interactions
		WHERE owner_id = ? AND occurred_at >= ?`, owner, fmtTime(since)).Scan(&n)
	return n, err
}

// --- People ---

func (s *Store) InsertPerson(p Person) error {
	_, err := s.db.Exec(`
		INSERT INTO people (id, interaction_id, contact_id, name, relation, org_school, location)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.InteractionID, p.ContactID, p.Name,
		strPtrVal(p.Relation), strPtrVal(p.OrgSchool), strPtrVal(p.Location),
	)
	return err
}

func (s *Store) ListPeopleByContact(contactID string) ([]Person, error) {
	rows, err := s.db.Query(`
		SELECT id, interaction_id, contact_id, name, relation, org_school, location
		FROM people WHERE contact_id = ?`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Person
	for rows.Next() {
		var p Person
		var relation, org, location sql.NullString
		if err := rows.Scan(&p.ID, &p.InteractionID, &p.ContactID, &p.Name, &relation, &org, &location); err != nil {
			return nil, err
		}
		p.Relation = nullStrPtr(relation)
		p.OrgSchool = nullStrPtr(org)
		p.Location = nullStrPtr(location)
		results = append(results, p)
	}
	return results, rows.Err()
}

// --- Follow-ups ---

func (s *Store) InsertFollowUp(f FollowUp) error {
	_, err := s.db.Exec(`
		INSERT INTO followups (id, owner_id, contact_id, interaction_id, task, due_date, completed, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.ContactID, f.InteractionID, f.Task,
		fmtDayPtr(f.DueDate), f.Completed, fmtTimePtr(f.CompletedAt), fmtTime(f.CreatedAt),
	)
	return err
}

const followupCols = "id, owner_id, contact_id, interaction_id, task, due_date, completed, completed_at, created_at"

func scanFollowUp(row interface{ Scan(...any) error }) (FollowUp, error) {
	var f FollowUp
	var due, completedAt sql.NullString
	var createdAt string
	err := row.Scan(&f.ID, &f.OwnerID, &f.ContactID, &f.InteractionID, &f.Task, &due, &f.Completed, &completedAt, &createdAt)
	if err != nil {
		return FollowUp{}, err
	}
	if f.DueDate, err = parseDayColPtr("due_date", due); err != nil {
		return FollowUp{}, err
	}
	if f.CompletedAt, err = parseTimeColPtr("completed_at", completedAt); err != nil {
		return FollowUp{}, err
	}
	if f.CreatedAt, err = parseTimeCol("created_at", createdAt); err != nil {
		return FollowUp{}, err
	}
	return f, nil
}

func (s *Store) GetFollowUp(id string) (FollowUp, error) {
	row := s.db.QueryRow(`SELECT `+followupCols+` FROM followups WHERE id = ?`, id)
	f, err := scanFollowUp(row)
	if err == sql.ErrNoRows {
		return FollowUp{}, ErrNotFound
	}
	return f, err
}

// ListFollowUps returns every follow-up for the owner, due date ascending
// with undated tasks last.
func (s *Store) ListFollowUps(owner string) ([]FollowUp, error) {
	rows, err := s.db.Query(`
		SELECT `+followupCols+` FROM followups
		WHERE owner_id = ?
		ORDER BY due_date IS NULL, due_date ASC, created_at ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// SetFollowUpCompleted toggles the completed flag. The due date is left
// untouched so an un-completed task re-enters its old category.
func (s *Store) SetFollowUpCompleted(id string, completed bool, completedAt *time.Time) error {
	res, err := s.db.Exec(`UPDATE followups SET completed = ?, completed_at = ? WHERE id = ?`,
		completed, fmtTimePtr(completedAt), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
