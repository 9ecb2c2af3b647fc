package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core/feedback"
)

type (
	feedbackRow struct {
		ID        string    `db:"id"`
		StudentID string    `db:"student_id"`
		TeacherID string    `db:"teacher_id"`
		Mood      string    `db:"mood"`
		Message   string    `db:"message"`
		Archived  bool      `db:"archived"`
		CreatedAt time.Time `db:"created_at"`
	}

	feedbackRepository struct {
		db *sqlx.DB
	}
)

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *sqlx.DB) *feedbackRepository {
	return &feedbackRepository{db: db}
}

func (repo feedbackRepository) unrow(r feedbackRow) feedback.Entry {
	return feedback.Entry{
		ID:        r.ID,
		StudentID: r.StudentID,
		TeacherID: r.TeacherID,
		Mood:      feedback.Mood(r.Mood),
		Message:   r.Message,
		Archived:  r.Archived,
		CreatedAt: r.CreatedAt,
	}
}

func (repo feedbackRepository) unrowSlice(rows []feedbackRow) []feedback.Entry {
	entries := make([]feedback.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, repo.unrow(r))
	}
	return entries
}

func (repo feedbackRepository) CreateFeedback(ctx context.Context, e feedback.Entry) (feedback.Entry, error) {
	e.ID = uuid.New().String()
	row := feedbackRow{
		ID:        e.ID,
		StudentID: e.StudentID,
		TeacherID: e.TeacherID,
		Mood:      e.Mood.String(),
		Message:   e.Message,
		Archived:  e.Archived,
		CreatedAt: e.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO feedback (id, student_id, teacher_id, mood, message, archived, created_at)
		VALUES (:id, :student_id, :teacher_id, :mood, :message, :archived, :created_at)`, row)
	if err != nil {
		return feedback.Entry{}, errors.Wrap(err, "inserting feedback")
	}
	return repo.unrow(row), nil
}

func (repo feedbackRepository) QueryActiveFeedback(ctx context.Context, teacherID string, limit int) ([]feedback.Entry, error) {
	var rows []feedbackRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM feedback
		WHERE teacher_id = $1 AND NOT archived
		ORDER BY created_at DESC
		LIMIT $2`, teacherID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying active feedback")
	}
	return repo.unrowSlice(rows), nil
}

func (repo feedbackRepository) QueryFeedbackByDay(ctx context.Context, teacherID string, day time.Time) ([]feedback.Entry, error) {
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	var rows []feedbackRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM feedback
		WHERE teacher_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at`, teacherID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback by day")
	}
	return repo.unrowSlice(rows), nil
}

func (repo feedbackRepository) ArchiveActiveFeedback(ctx context.Context, teacherID string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE feedback SET archived = TRUE
		WHERE teacher_id = $1 AND NOT archived`, teacherID)
	if err != nil {
		return 0, errors.Wrap(err, "archiving feedback")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "archiving feedback")
	}
	return int(cnt), nil
}

func (repo feedbackRepository) CountFeedbackSince(ctx context.Context, teacherID string, since time.Time) (int, error) {
	var cnt int
	err := repo.db.GetContext(ctx, &cnt, `
		SELECT COUNT(*) FROM feedback
		WHERE teacher_id = $1 AND created_at >= $2`, teacherID, since.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "counting feedback")
	}
	return cnt, nil
}
