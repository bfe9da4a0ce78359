// Package subject holds the hydrated, read-only view of a council agenda item.
package subject

import "time"

// Graph names the associations loaded with a subject.
type Graph struct {
	Meeting    bool
	Topic      bool
	Introducer bool
	Location   bool
	Segments   bool
}

// FullGraph loads every association needed for display.
func FullGraph() Graph {
	return Graph{Meeting: true, Topic: true, Introducer: true, Location: true, Segments: true}
}

// City is the municipality owning a meeting.
type City struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// Meeting is a council session.
type Meeting struct {
	ID     string    `json:"id"`
	CityID string    `json:"cityId"`
	Name   string    `json:"name"`
	Date   time.Time `json:"date"`
	City   *City     `json:"city,omitempty"`
}

// Topic is an editorial category.
type Topic struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ColorHex string `json:"colorHex,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// Party is a political party.
type Party struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Role is a dated position a person held in a city or party.
type Role struct {
	ID      string     `json:"id"`
	Name    string     `json:"name,omitempty"`
	CityID  string     `json:"cityId,omitempty"`
	PartyID string     `json:"partyId,omitempty"`
	Start   *time.Time `json:"startDate,omitempty"`
	End     *time.Time `json:"endDate,omitempty"`
}

// Person is a council member or other speaker.
type Person struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image,omitempty"`
	Party    *Party `json:"party,omitempty"`
	Roles    []Role `json:"roles"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is a place a subject refers to.
type Location struct {
	ID          string       `json:"id"`
	Text        string       `json:"text"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Segment is a transcript block attributed to one speaker.
type Segment struct {
	ID        string  `json:"id"`
	MeetingID string  `json:"meetingId"`
	StartSec  float64 `json:"startTimestamp"`
	EndSec    float64 `json:"endTimestamp"`
	Speaker   *Person `json:"speaker,omitempty"`
	Text      string  `json:"text"`
	Summary   string  `json:"summary,omitempty"`
}

// Record is a hydrated subject.
type Record struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	AgendaItemIndex *int      `json:"agendaItemIndex,omitempty"`
	NonAgendaReason string    `json:"nonAgendaReason,omitempty"`
	Meeting         *Meeting  `json:"meeting,omitempty"`
	Topic           *Topic    `json:"topic,omitempty"`
	Introducer      *Person   `json:"introducedBy,omitempty"`
	Location        *Location `json:"location,omitempty"`
	Segments        []Segment `json:"speakerSegments"`

	MatchedSegmentIDs []string `json:"matchedSpeakerSegmentIds"`
	Score             float64  `json:"score"`
	// DistanceKm is set when the request carried a geo facet and the location has coordinates.
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}
