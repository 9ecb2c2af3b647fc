package alert

import (
	"time"

	"github.com/pulseed/pulseed/core/risk"
)

// AnonymousName is recorded when a student never shared their name.
const AnonymousName = "Anonymous"

// Entry is one escalation notification for a teacher. Entries are
// insert-only; there is no update/delete lifecycle and no dedup key, so
// duplicate submissions produce duplicate rows.
type Entry struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	StudentID   string    `json:"student_id,omitempty"`
	StudentName string    `json:"student_name,omitempty"`
	Message     string    `json:"message"`
	Mood        string    `json:"mood,omitempty"`
	RiskLevel   risk.Tier `json:"risk_level"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}
