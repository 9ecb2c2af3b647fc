package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/pulseed/pulseed/core"
)

// HistoryWindow bounds every query that may end up in a model prompt.
const HistoryWindow = 100

var ErrNotFound = errors.New("feedback entry not found")

type (
	Repository interface {
		CreateFeedback(ctx context.Context, e Entry) (Entry, error)
		// QueryActiveFeedback returns the latest non-archived entries for a
		// teacher, newest first, capped at limit.
		QueryActiveFeedback(ctx context.Context, teacherID string, limit int) ([]Entry, error)
		// QueryFeedbackByDay returns all of a day's entries, archived included.
		QueryFeedbackByDay(ctx context.Context, teacherID string, day time.Time) ([]Entry, error)
		// ArchiveActiveFeedback flips Archived on every active entry and
		// reports how many rows changed.
		ArchiveActiveFeedback(ctx context.Context, teacherID string) (int, error)
		CountFeedbackSince(ctx context.Context, teacherID string, since time.Time) (int, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create persists a new entry for the given student/teacher linkage.
func (svc *Service) Create(ctx context.Context, studentID, teacherID string, ne NewEntry) (Entry, error) {
	e := Entry{
		StudentID: studentID,
		TeacherID: teacherID,
		Mood:      Mood(ne.Mood),
		Message:   ne.Message,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateFeedback(ctx, e)
}

func (svc *Service) QueryActive(ctx context.Context, teacherID string) ([]Entry, error) {
	return svc.repo.QueryActiveFeedback(ctx, teacherID, HistoryWindow)
}

func (svc *Service) QueryByDay(ctx context.Context, teacherID string, day time.Time) ([]Entry, error) {
	return svc.repo.QueryFeedbackByDay(ctx, teacherID, day)
}

// Reset archives all active feedback for a teacher's dashboard.
func (svc *Service) Reset(ctx context.Context, teacherID string) (int, error) {
	return svc.repo.ArchiveActiveFeedback(ctx, teacherID)
}

func (svc *Service) CountSince(ctx context.Context, teacherID string, since time.Time) (int, error) {
	return svc.repo.CountFeedbackSince(ctx, teacherID, since)
}

// Aggregate builds the descriptive stats over a window of entries.
func Aggregate(entries []Entry) Stats {
	stats := Stats{MoodCounts: make(map[Mood]int, len(moodRanks))}
	var negative int
	for _, e := range entries {
		stats.Total++
		stats.MoodCounts[e.Mood]++
		if e.Message != "" {
			stats.MessageCount++
		}
		if e.Mood.Negative() {
			negative++
		}
	}
	if stats.Total > 0 {
		stats.NegativeRatio = float64(negative) / float64(stats.Total)
	}
	return stats
}
