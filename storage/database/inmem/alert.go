package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pulseed/pulseed/core/alert"
)

type alertRepository struct {
	db *alertTable
}

var _ alert.Repository = (*alertRepository)(nil) // interface compliance check

func NewAlertRepository(db *DB) *alertRepository {
	return &alertRepository{db: db.alert}
}

func (repo *alertRepository) query(teacherID string) []alert.Entry {
	entries := make([]alert.Entry, 0)
	for _, e := range repo.db.table {
		if e.TeacherID == teacherID {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries
}

func (repo *alertRepository) CreateAlert(ctx context.Context, e alert.Entry) (alert.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	e.ID = uuid.New().String()
	repo.db.table[e.ID] = &e
	return e, nil
}

func (repo *alertRepository) QueryAlerts(ctx context.Context, teacherID string) ([]alert.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(teacherID), nil
}

func (repo *alertRepository) CountAlertsSince(ctx context.Context, teacherID string, since time.Time) (int, error) {
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

func (repo *alertRepository) SetLatestAlertStudentName(ctx context.Context, teacherID, studentID, name string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var latest *alert.Entry
	for _, e := range repo.db.table {
		if e.TeacherID != teacherID || e.StudentID != studentID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest != nil {
		latest.StudentName = name
	}
	return nil
}
