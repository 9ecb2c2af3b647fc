package feedback

import (
	"time"

	"github.com/pulseed/pulseed/core"
)

// Mood is a point on the declared five-step mood scale.
type Mood string

const (
	MoodTerrible Mood = "terrible"
	MoodBad      Mood = "bad"
	MoodOkay     Mood = "okay"
	MoodGood     Mood = "good"
	MoodGreat    Mood = "great"
)

var moodRanks = map[Mood]int{
	MoodTerrible: 1,
	MoodBad:      2,
	MoodOkay:     3,
	MoodGood:     4,
	MoodGreat:    5,
}

func (m Mood) String() string { return string(m) }

func (m Mood) Valid() bool { return moodRanks[m] > 0 }

// Negative reports whether m sits in the lower(sad) half of the scale.
func (m Mood) Negative() bool {
	r := moodRanks[m]
	return r > 0 && r <= moodRanks[MoodBad]
}

// Lowest reports whether m is the most negative point on the scale; this is
// an escalation trigger independent of message classification.
func (m Mood) Lowest() bool { return m == MoodTerrible }

// Entry is one anonymous mood submission. Entries are never deleted; a
// teacher-triggered reset only flips Archived.
type Entry struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	TeacherID string    `json:"teacher_id"`
	Mood      Mood      `json:"mood"`
	Message   string    `json:"message,omitempty"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewEntry contains a student's mood submission.
type NewEntry struct {
	Mood    string `json:"mood" validate:"required,oneof=terrible bad okay good great"`
	Message string `json:"message" validate:"omitempty,max=2000"`
}

func (ne *NewEntry) Validate() error {
	ne.Mood = core.CleanString(ne.Mood, true /* lower */)
	ne.Message = core.CleanString(ne.Message)
	return core.Validate.Struct(ne)
}

// Stats are the descriptive aggregates fed to the insights prompts.
type Stats struct {
	Total         int          `json:"total"`
	MessageCount  int          `json:"message_count"`
	MoodCounts    map[Mood]int `json:"mood_counts"`
	NegativeRatio float64      `json:"negative_ratio"`
}
