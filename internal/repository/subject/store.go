// Package subject loads hydrated subject records from the relational store.
package subject

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/schemalabz/opencouncil-sub005/internal/domain"
	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to the database and applies pool limits.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return db, nil
}

// Store implements usecase/search.SubjectStore on top of sqlx.
type Store struct {
	db *sqlx.DB
}

// New creates a subject store.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// LoadSubject loads a subject with the associations named by g.
// Returns domain.ErrNotFound when no subject has the id.
func (s *Store) LoadSubject(ctx context.Context, id string, g domsubject.Graph) (*domsubject.Record, error) {
	var row subjectRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, name, description, agenda_item_index, non_agenda_reason,
		       meeting_id, topic_id, introduced_by_id, location_id
		FROM subject WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subject %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load subject %s: %w", id, err)
	}

	rec := row.toRecord()

	if g.Meeting {
		if rec.Meeting, err = s.loadMeeting(ctx, row.MeetingID); err != nil {
			return nil, err
		}
	}
	if g.Topic && row.TopicID.Valid {
		if rec.Topic, err = s.loadTopic(ctx, row.TopicID.String); err != nil {
			return nil, err
		}
	}
	if g.Introducer && row.IntroducedByID.Valid {
		people, err := s.loadPersons(ctx, []string{row.IntroducedByID.String})
		if err != nil {
			return nil, err
		}
		rec.Introducer = people[row.IntroducedByID.String]
	}
	if g.Location && row.LocationID.Valid {
		if rec.Location, err = s.loadLocation(ctx, row.LocationID.String); err != nil {
			return nil, err
		}
	}
	if g.Segments {
		if rec.Segments, err = s.loadSegments(ctx, id); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// LocationCoordinates projects the stored WKT point of a location.
// Returns nil when the location has no geometry.
func (s *Store) LocationCoordinates(ctx context.Context, locationID string) (*domsubject.Coordinates, error) {
	var raw sql.NullString
	err := s.db.GetContext(ctx, &raw, s.db.Rebind(`SELECT coordinates FROM location WHERE id = ?`), locationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("location %s: %w", locationID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load coordinates %s: %w", locationID, err)
	}
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	return parsePoint(raw.String)
}

func parsePoint(s string) (*domsubject.Coordinates, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("parse coordinates %q: %w", s, err)
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, fmt.Errorf("coordinates %q: want POINT, got %T", s, g)
	}
	if p.Empty() {
		return nil, nil
	}
	return &domsubject.Coordinates{Lat: p.Y(), Lon: p.X()}, nil
}

func (s *Store) loadMeeting(ctx context.Context, id string) (*domsubject.Meeting, error) {
	var row meetingRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT m.id, m.city_id, m.name, m.date, c.name AS city_name, c.timezone AS city_timezone
		FROM meeting m JOIN city c ON c.id = m.city_id
		WHERE m.id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("load meeting %s: %w", id, err)
	}
	return &domsubject.Meeting{
		ID:     row.ID,
		CityID: row.CityID,
		Name:   row.Name,
		Date:   row.Date.UTC(),
		City:   &domsubject.City{ID: row.CityID, Name: row.CityName, Timezone: row.CityTimezone},
	}, nil
}

func (s *Store) loadTopic(ctx context.Context, id string) (*domsubject.Topic, error) {
	var row topicRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, name, color_hex, icon FROM topic WHERE id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("load topic %s: %w", id, err)
	}
	return &domsubject.Topic{ID: row.ID, Name: row.Name, ColorHex: row.ColorHex, Icon: row.Icon}, nil
}

func (s *Store) loadLocation(ctx context.Context, id string) (*domsubject.Location, error) {
	var row locationRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT id, text FROM location WHERE id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("load location %s: %w", id, err)
	}
	return &domsubject.Location{ID: row.ID, Text: row.Text}, nil
}

// loadPersons resolves people with their party and roles, keyed by id.
func (s *Store) loadPersons(ctx context.Context, ids []string) (map[string]*domsubject.Person, error) {
	out := make(map[string]*domsubject.Person, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q, args, err := sqlx.In(`
		SELECT p.id, p.name, p.image, p.party_id, pa.name AS party_name
		FROM person p LEFT JOIN party pa ON pa.id = p.party_id
		WHERE p.id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build person query: %w", err)
	}
	var rows []personRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("load persons: %w", err)
	}
	for _, r := range rows {
		p := &domsubject.Person{ID: r.ID, Name: r.Name, ImageURL: r.Image, Roles: []domsubject.Role{}}
		if r.PartyID.Valid {
			p.Party = &domsubject.Party{ID: r.PartyID.String, Name: r.PartyName.String}
		}
		out[r.ID] = p
	}

	q, args, err = sqlx.In(`
		SELECT id, person_id, name, city_id, party_id, start_date, end_date
		FROM role WHERE person_id IN (?) ORDER BY person_id, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build role query: %w", err)
	}
	var roles []roleRow
	if err := s.db.SelectContext(ctx, &roles, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	for _, r := range roles {
		if p, ok := out[r.PersonID]; ok {
			p.Roles = append(p.Roles, r.toRole())
		}
	}
	return out, nil
}

// loadSegments returns the subject's speaker segments in time order with
// utterances concatenated and speakers resolved.
func (s *Store) loadSegments(ctx context.Context, subjectID string) ([]domsubject.Segment, error) {
	var rows []segmentRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT sg.id, sg.meeting_id, sg.start_timestamp, sg.end_timestamp, sg.person_id, ss.summary
		FROM subject_speaker_segment ss
		JOIN speaker_segment sg ON sg.id = ss.speaker_segment_id
		WHERE ss.subject_id = ?
		ORDER BY sg.start_timestamp, sg.id`), subjectID)
	if err != nil {
		return nil, fmt.Errorf("load segments of %s: %w", subjectID, err)
	}
	segments := make([]domsubject.Segment, 0, len(rows))
	if len(rows) == 0 {
		return segments, nil
	}

	segmentIDs := make([]string, 0, len(rows))
	var speakerIDs []string
	seenSpeaker := make(map[string]struct{})
	for _, r := range rows {
		segmentIDs = append(segmentIDs, r.ID)
		if r.PersonID.Valid {
			if _, ok := seenSpeaker[r.PersonID.String]; !ok {
				seenSpeaker[r.PersonID.String] = struct{}{}
				speakerIDs = append(speakerIDs, r.PersonID.String)
			}
		}
	}

	texts, err := s.loadSegmentTexts(ctx, segmentIDs)
	if err != nil {
		return nil, err
	}
	speakers, err := s.loadPersons(ctx, speakerIDs)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		seg := domsubject.Segment{
			ID:        r.ID,
			MeetingID: r.MeetingID,
			StartSec:  r.Start,
			EndSec:    r.End,
			Text:      texts[r.ID],
			Summary:   r.Summary.String,
		}
		if r.PersonID.Valid {
			seg.Speaker = speakers[r.PersonID.String]
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func (s *Store) loadSegmentTexts(ctx context.Context, segmentIDs []string) (map[string]string, error) {
	q, args, err := sqlx.In(`
		SELECT speaker_segment_id, text FROM utterance
		WHERE speaker_segment_id IN (?)
		ORDER BY speaker_segment_id, start_timestamp, id`, segmentIDs)
	if err != nil {
		return nil, fmt.Errorf("build utterance query: %w", err)
	}
	var rows []utteranceRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("load utterances: %w", err)
	}

	parts := make(map[string][]string, len(segmentIDs))
	for _, r := range rows {
		parts[r.SegmentID] = append(parts[r.SegmentID], strings.TrimSpace(r.Text))
	}
	out := make(map[string]string, len(parts))
	for id, p := range parts {
		out[id] = strings.Join(p, " ")
	}
	return out, nil
}
