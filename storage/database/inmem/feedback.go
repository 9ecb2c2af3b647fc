package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pulseed/pulseed/core/feedback"
)

type feedbackRepository struct {
	db *feedbackTable
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *DB) *feedbackRepository {
	return &feedbackRepository{db: db.feedback}
}

func (repo *feedbackRepository) query(teacherID string) []feedback.Entry {
	entries := make([]feedback.Entry, 0)
	for _, e := range repo.db.table {
		if e.TeacherID == teacherID {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries
}

func (repo *feedbackRepository) CreateFeedback(ctx context.Context, e feedback.Entry) (feedback.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.ID = uuid.New().String()
	repo.db.table[e.ID] = &e
	return e, nil
}

func (repo *feedbackRepository) QueryActiveFeedback(ctx context.Context, teacherID string, limit int) ([]feedback.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]feedback.Entry, 0)
	for _, e := range repo.query(teacherID) {
		if e.Archived {
			continue
		}
		entries = append(entries, e)
		if len(entries) == limit {
			break
		}
	}
	return entries, nil
}

func (repo *feedbackRepository) QueryFeedbackByDay(ctx context.Context, teacherID string, day time.Time) ([]feedback.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	entries := make([]feedback.Entry, 0)
	for _, e := range repo.query(teacherID) {
		if !e.CreatedAt.Before(start) && e.CreatedAt.Before(end) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (repo *feedbackRepository) ArchiveActiveFeedback(ctx context.Context, teacherID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, e := range repo.db.table {
		if e.TeacherID == teacherID && !e.Archived {
			e.Archived = true
			cnt++
		}
	}
	return cnt, nil
}

func (repo *feedbackRepository) CountFeedbackSince(ctx context.Context, teacherID string, since time.Time) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var cnt int
	for _, e := range repo.db.table {
		if e.TeacherID == teacherID && !e.CreatedAt.Before(since) {
			cnt++
		}
	}
	return cnt, nil
}
