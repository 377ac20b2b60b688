package types

import "strings"

// ProfileRecord is the consolidated view of one candidate, built up across
// multiple captures while scrolling through their profile. Exactly one record
// is active at a time; it is owned by the current loop iteration and discarded
// once a decision has been executed.
type ProfileRecord struct {
	Name      string   `json:"name"`
	Age       int      `json:"age,omitempty"` // 0 when no age could be parsed
	Fragments []string `json:"fragments"`
	Interests []string `json:"interests,omitempty"`
	Photos    []string `json:"photos,omitempty"` // capture IDs, not pixel data
	Frames    int      `json:"frames"`

	seen      map[string]bool
	interests map[string]bool
	stale     int
}

// NewProfileRecord returns an empty record ready for ingestion.
func NewProfileRecord() *ProfileRecord {
	return &ProfileRecord{
		seen:      make(map[string]bool),
		interests: make(map[string]bool),
	}
}

// AddFragment appends a text fragment unless it is a verbatim repeat of one
// already present. Returns true if the fragment was new.
func (r *ProfileRecord) AddFragment(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || r.seen[s] {
		return false
	}
	r.seen[s] = true
	r.Fragments = append(r.Fragments, s)
	return true
}

// AddInterest records a detected interest tag, de-duplicated.
func (r *ProfileRecord) AddInterest(tag string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || r.interests[tag] {
		return
	}
	r.interests[tag] = true
	r.Interests = append(r.Interests, tag)
}

// AddPhoto records a frame reference for a capture that showed photos.
func (r *ProfileRecord) AddPhoto(captureID string) {
	r.Photos = append(r.Photos, captureID)
}

// MarkIngest records that one capture was ingested, contributing newFragments
// new fragments. Tracks how many consecutive ingests added nothing.
func (r *ProfileRecord) MarkIngest(newFragments int) {
	r.Frames++
	if newFragments == 0 {
		r.stale++
	} else {
		r.stale = 0
	}
}

// StaleIngests returns how many consecutive ingests produced no new fragments.
func (r *ProfileRecord) StaleIngests() int {
	return r.stale
}

// AllText returns every fragment joined by newlines, for keyword matching and
// prompt assembly.
func (r *ProfileRecord) AllText() string {
	return strings.Join(r.Fragments, "\n")
}
