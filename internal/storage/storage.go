// Package storage is the durable store behind the chat service: response
// rules, unknown-question records, the product catalog, site content and
// quick replies, all in a single SQLite database.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"shopassist/internal/models"
)

// Normalize derives the canonical key for trigger phrases and unknown
// questions. Every lookup path must go through this so keys stay stable.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	trigger TEXT PRIMARY KEY,
	reply   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS unknown_questions (
	normalized       TEXT PRIMARY KEY,
	original         TEXT NOT NULL,
	first_seen_at    TEXT NOT NULL,
	occurrence_count INTEGER NOT NULL DEFAULT 1,
	last_asker       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	price          TEXT NOT NULL,
	description    TEXT NOT NULL,
	category       TEXT NOT NULL,
	in_stock       INTEGER NOT NULL DEFAULT 1,
	image_url      TEXT NOT NULL DEFAULT '',
	features       TEXT NOT NULL DEFAULT '[]',
	specifications TEXT NOT NULL DEFAULT '{}',
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS site_content (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	category   TEXT NOT NULL,
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS quick_messages (
	id       TEXT PRIMARY KEY,
	text     TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0
);
`

// New opens (creating if needed) the database at path. Use ":memory:" for
// tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc sqlite serializes access through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports store health for the /health endpoint.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// ─── Response rules ──────────────────────────────────────────────────────────

// UpsertResponse stores a rule under its normalized trigger. Last write wins.
func (s *Store) UpsertResponse(trigger, reply string) error {
	key := Normalize(trigger)
	if key == "" {
		return fmt.Errorf("empty trigger phrase")
	}
	_, err := s.db.Exec(
		`INSERT INTO responses (trigger, reply) VALUES (?, ?)
		 ON CONFLICT(trigger) DO UPDATE SET reply = excluded.reply`,
		key, reply,
	)
	return err
}

func (s *Store) DeleteResponse(trigger string) error {
	_, err := s.db.Exec(`DELETE FROM responses WHERE trigger = ?`, Normalize(trigger))
	return err
}

// GetResponse returns the reply for an exact normalized trigger.
func (s *Store) GetResponse(trigger string) (string, bool, error) {
	var reply string
	err := s.db.QueryRow(`SELECT reply FROM responses WHERE trigger = ?`, Normalize(trigger)).Scan(&reply)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return reply, true, nil
}

// ListResponses returns all rules ordered longest trigger first (ties by
// trigger text), the priority the substring scan relies on.
func (s *Store) ListResponses() ([]models.ResponseRule, error) {
	rows, err := s.db.Query(`SELECT trigger, reply FROM responses ORDER BY LENGTH(trigger) DESC, trigger ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.ResponseRule
	for rows.Next() {
		var r models.ResponseRule
		if err := rows.Scan(&r.Trigger, &r.Reply); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ReplaceResponses atomically swaps the whole rule table for an imported set.
func (s *Store) ReplaceResponses(rules map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM responses`); err != nil {
		return err
	}
	for trigger, reply := range rules {
		if _, err := tx.Exec(`INSERT INTO responses (trigger, reply) VALUES (?, ?)`, Normalize(trigger), reply); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ─── Unknown questions ───────────────────────────────────────────────────────

// RecordUnknownQuestion inserts a record for the normalized text or, on
// repeat, increments its occurrence count. first_seen_at never changes after
// the first ask.
func (s *Store) RecordUnknownQuestion(original, askerID string, now time.Time) error {
	key := Normalize(original)
	if key == "" {
		return fmt.Errorf("empty question text")
	}
	_, err := s.db.Exec(
		`INSERT INTO unknown_questions (normalized, original, first_seen_at, occurrence_count, last_asker)
		 VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(normalized) DO UPDATE SET
			occurrence_count = occurrence_count + 1,
			last_asker = excluded.last_asker`,
		key, original, now.UTC().Format(time.RFC3339), askerID,
	)
	return err
}

func (s *Store) GetUnknownQuestion(normalized string) (*models.UnknownQuestion, error) {
	row := s.db.QueryRow(
		`SELECT normalized, original, first_seen_at, occurrence_count, last_asker
		 FROM unknown_questions WHERE normalized = ?`, Normalize(normalized))
	return scanUnknown(row)
}

func (s *Store) ListUnknownQuestions() ([]models.UnknownQuestion, error) {
	rows, err := s.db.Query(
		`SELECT normalized, original, first_seen_at, occurrence_count, last_asker
		 FROM unknown_questions ORDER BY occurrence_count DESC, first_seen_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UnknownQuestion
	for rows.Next() {
		q, err := scanUnknown(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnknown(row rowScanner) (*models.UnknownQuestion, error) {
	var q models.UnknownQuestion
	var firstSeen string
	err := row.Scan(&q.Normalized, &q.Original, &firstSeen, &q.OccurrenceCount, &q.LastAskerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	q.FirstSeenAt, _ = time.Parse(time.RFC3339, firstSeen)
	return &q, nil
}

// PromoteUnknownQuestion turns a captured question into a response rule and
// removes the record, atomically.
func (s *Store) PromoteUnknownQuestion(normalized, reply string) error {
	key := Normalize(normalized)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM unknown_questions WHERE normalized = ?`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("unknown question %q not found", key)
	}
	if _, err := tx.Exec(
		`INSERT INTO responses (trigger, reply) VALUES (?, ?)
		 ON CONFLICT(trigger) DO UPDATE SET reply = excluded.reply`,
		key, reply,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DiscardUnknownQuestion(normalized string) error {
	_, err := s.db.Exec(`DELETE FROM unknown_questions WHERE normalized = ?`, Normalize(normalized))
	return err
}

// ─── Products ────────────────────────────────────────────────────────────────

func (s *Store) CreateProduct(p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	features, _ := json.Marshal(p.Features)
	specs, _ := json.Marshal(p.Specifications)
	_, err := s.db.Exec(
		`INSERT INTO products (id, name, price, description, category, in_stock, image_url, features, specifications, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Price, p.Description, p.Category, boolToInt(p.InStock),
		p.ImageURL, string(features), string(specs), p.CreatedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) UpdateProduct(p *models.Product) error {
	features, _ := json.Marshal(p.Features)
	specs, _ := json.Marshal(p.Specifications)
	res, err := s.db.Exec(
		`UPDATE products SET name = ?, price = ?, description = ?, category = ?,
			in_stock = ?, image_url = ?, features = ?, specifications = ?
		 WHERE id = ?`,
		p.Name, p.Price, p.Description, p.Category, boolToInt(p.InStock),
		p.ImageURL, string(features), string(specs), p.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %q not found", p.ID)
	}
	return nil
}

func (s *Store) DeleteProduct(id string) error {
	_, err := s.db.Exec(`DELETE FROM products WHERE id = ?`, id)
	return err
}

func (s *Store) ListProducts() ([]models.Product, error) {
	rows, err := s.db.Query(
		`SELECT id, name, price, description, category, in_stock, image_url, features, specifications, created_at
		 FROM products ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		var inStock int
		var features, specs, createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Category,
			&inStock, &p.ImageURL, &features, &specs, &createdAt); err != nil {
			return nil, err
		}
		p.InStock = inStock != 0
		json.Unmarshal([]byte(features), &p.Features)
		json.Unmarshal([]byte(specs), &p.Specifications)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceProducts atomically swaps the catalog for an imported set. Either
// every product lands or none does.
func (s *Store) ReplaceProducts(products []models.Product) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM products`); err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range products {
		p := &products[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		features, _ := json.Marshal(p.Features)
		specs, _ := json.Marshal(p.Specifications)
		if _, err := tx.Exec(
			`INSERT INTO products (id, name, price, description, category, in_stock, image_url, features, specifications, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Price, p.Description, p.Category, boolToInt(p.InStock),
			p.ImageURL, string(features), string(specs), p.CreatedAt.Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ─── Site content ────────────────────────────────────────────────────────────

func (s *Store) CreateSiteContent(c *models.SiteContent) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	tags, _ := json.Marshal(c.Tags)
	_, err := s.db.Exec(
		`INSERT INTO site_content (id, title, content, category, tags, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Content, c.Category, string(tags), c.CreatedAt.Format(time.RFC3339),
	)
	return err
}

func (s *Store) DeleteSiteContent(id string) error {
	_, err := s.db.Exec(`DELETE FROM site_content WHERE id = ?`, id)
	return err
}

func (s *Store) ListSiteContent() ([]models.SiteContent, error) {
	rows, err := s.db.Query(
		`SELECT id, title, content, category, tags, created_at
		 FROM site_content ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SiteContent
	for rows.Next() {
		var c models.SiteContent
		var tags, createdAt string
		if err := rows.Scan(&c.ID, &c.Title, &c.Content, &c.Category, &tags, &createdAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(tags), &c.Tags)
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceSiteContent atomically swaps the knowledge base for an imported set.
func (s *Store) ReplaceSiteContent(entries []models.SiteContent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM site_content`); err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range entries {
		c := &entries[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		tags, _ := json.Marshal(c.Tags)
		if _, err := tx.Exec(
			`INSERT INTO site_content (id, title, content, category, tags, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Title, c.Content, c.Category, string(tags), c.CreatedAt.Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ─── Quick messages ──────────────────────────────────────────────────────────

func (s *Store) CreateQuickMessage(text string, position int) (*models.QuickMessage, error) {
	qm := &models.QuickMessage{
		ID:       uuid.New().String(),
		Text:     text,
		Position: position,
	}
	_, err := s.db.Exec(`INSERT INTO quick_messages (id, text, position) VALUES (?, ?, ?)`,
		qm.ID, qm.Text, qm.Position)
	if err != nil {
		return nil, err
	}
	return qm, nil
}

func (s *Store) DeleteQuickMessage(id string) error {
	_, err := s.db.Exec(`DELETE FROM quick_messages WHERE id = ?`, id)
	return err
}

func (s *Store) ListQuickMessages() ([]models.QuickMessage, error) {
	rows, err := s.db.Query(`SELECT id, text, position FROM quick_messages ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QuickMessage
	for rows.Next() {
		var qm models.QuickMessage
		if err := rows.Scan(&qm.ID, &qm.Text, &qm.Position); err != nil {
			return nil, err
		}
		out = append(out, qm)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
