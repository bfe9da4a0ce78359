package subject

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the relational layout the store reads. Production databases are
// migrated by the ingestion side; Migrate exists for local SQLite files and tests.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS city (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'Europe/Athens'
	)`,
	`CREATE TABLE IF NOT EXISTS meeting (
		id TEXT PRIMARY KEY,
		city_id TEXT NOT NULL REFERENCES city(id),
		name TEXT NOT NULL,
		date DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS topic (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		color_hex TEXT NOT NULL DEFAULT '',
		icon TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS party (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS person (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		image TEXT NOT NULL DEFAULT '',
		party_id TEXT REFERENCES party(id)
	)`,
	`CREATE TABLE IF NOT EXISTS role (
		id TEXT PRIMARY KEY,
		person_id TEXT NOT NULL REFERENCES person(id),
		name TEXT NOT NULL DEFAULT '',
		city_id TEXT,
		party_id TEXT,
		start_date DATETIME,
		end_date DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS location (
		id TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		coordinates TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS subject (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		agenda_item_index INTEGER,
		non_agenda_reason TEXT,
		meeting_id TEXT NOT NULL REFERENCES meeting(id),
		topic_id TEXT REFERENCES topic(id),
		introduced_by_id TEXT REFERENCES person(id),
		location_id TEXT REFERENCES location(id)
	)`,
	`CREATE TABLE IF NOT EXISTS speaker_segment (
		id TEXT PRIMARY KEY,
		meeting_id TEXT NOT NULL REFERENCES meeting(id),
		start_timestamp REAL NOT NULL,
		end_timestamp REAL NOT NULL,
		person_id TEXT REFERENCES person(id)
	)`,
	`CREATE TABLE IF NOT EXISTS utterance (
		id TEXT PRIMARY KEY,
		speaker_segment_id TEXT NOT NULL REFERENCES speaker_segment(id),
		start_timestamp REAL NOT NULL,
		text TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subject_speaker_segment (
		subject_id TEXT NOT NULL REFERENCES subject(id),
		speaker_segment_id TEXT NOT NULL REFERENCES speaker_segment(id),
		summary TEXT,
		PRIMARY KEY (subject_id, speaker_segment_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_utterance_segment ON utterance(speaker_segment_id, start_timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_role_person ON role(person_id)`,
}

// Migrate creates the tables when they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
