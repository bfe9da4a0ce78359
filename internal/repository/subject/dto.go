package subject

import (
	"database/sql"
	"time"

	domsubject "github.com/schemalabz/opencouncil-sub005/internal/domain/subject"
)

type subjectRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Description     string         `db:"description"`
	AgendaItemIndex sql.NullInt64  `db:"agenda_item_index"`
	NonAgendaReason sql.NullString `db:"non_agenda_reason"`
	MeetingID       string         `db:"meeting_id"`
	TopicID         sql.NullString `db:"topic_id"`
	IntroducedByID  sql.NullString `db:"introduced_by_id"`
	LocationID      sql.NullString `db:"location_id"`
}

func (r subjectRow) toRecord() *domsubject.Record {
	rec := &domsubject.Record{
		ID:                r.ID,
		Name:              r.Name,
		Description:       r.Description,
		NonAgendaReason:   r.NonAgendaReason.String,
		Segments:          []domsubject.Segment{},
		MatchedSegmentIDs: []string{},
	}
	if r.AgendaItemIndex.Valid {
		idx := int(r.AgendaItemIndex.Int64)
		rec.AgendaItemIndex = &idx
	}
	return rec
}

type meetingRow struct {
	ID           string    `db:"id"`
	CityID       string    `db:"city_id"`
	Name         string    `db:"name"`
	Date         time.Time `db:"date"`
	CityName     string    `db:"city_name"`
	CityTimezone string    `db:"city_timezone"`
}

type topicRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	ColorHex string `db:"color_hex"`
	Icon     string `db:"icon"`
}

type locationRow struct {
	ID   string `db:"id"`
	Text string `db:"text"`
}

type personRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Image     string         `db:"image"`
	PartyID   sql.NullString `db:"party_id"`
	PartyName sql.NullString `db:"party_name"`
}

type roleRow struct {
	ID       string         `db:"id"`
	PersonID string         `db:"person_id"`
	Name     string         `db:"name"`
	CityID   sql.NullString `db:"city_id"`
	PartyID  sql.NullString `db:"party_id"`
	Start    sql.NullTime   `db:"start_date"`
	End      sql.NullTime   `db:"end_date"`
}

func (r roleRow) toRole() domsubject.Role {
	role := domsubject.Role{
		ID:      r.ID,
		Name:    r.Name,
		CityID:  r.CityID.String,
		PartyID: r.PartyID.String,
	}
	if r.Start.Valid {
		t := r.Start.Time.UTC()
		role.Start = &t
	}
	if r.End.Valid {
		t := r.End.Time.UTC()
		role.End = &t
	}
	return role
}

type segmentRow struct {
	ID        string         `db:"id"`
	MeetingID string         `db:"meeting_id"`
	Start     float64        `db:"start_timestamp"`
	End       float64        `db:"end_timestamp"`
	PersonID  sql.NullString `db:"person_id"`
	Summary   sql.NullString `db:"summary"`
}

type utteranceRow struct {
	SegmentID string `db:"speaker_segment_id"`
	Text      string `db:"text"`
}
