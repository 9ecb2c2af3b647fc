package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/risk"
)

type (
	alertRow struct {
		ID          string    `db:"id"`
		TeacherID   string    `db:"teacher_id"`
		StudentID   string    `db:"student_id"`
		StudentName string    `db:"student_name"`
		Message     string    `db:"message"`
		Mood        string    `db:"mood"`
		RiskLevel   string    `db:"risk_level"`
		CreatedAt   time.Time `db:"created_at"`
	}

	alertRepository struct {
		db *sqlx.DB
	}
)

var _ alert.Repository = (*alertRepository)(nil) // interface compliance check

func NewAlertRepository(db *sqlx.DB) *alertRepository {
	return &alertRepository{db: db}
}

func (repo alertRepository) unrow(r alertRow) alert.Entry {
	return alert.Entry{
		ID:          r.ID,
		TeacherID:   r.TeacherID,
		StudentID:   r.StudentID,
		StudentName: r.StudentName,
		Message:     r.Message,
		Mood:        r.Mood,
		RiskLevel:   risk.Tier(r.RiskLevel),
		CreatedAt:   r.CreatedAt,
	}
}

func (repo alertRepository) CreateAlert(ctx context.Context, e alert.Entry) (alert.Entry, error) {
	e.ID = uuid.New().String()
	row := alertRow{
		ID:          e.ID,
		TeacherID:   e.TeacherID,
		StudentID:   e.StudentID,
		StudentName: e.StudentName,
		Message:     e.Message,
		Mood:        e.Mood,
		RiskLevel:   e.RiskLevel.String(),
		CreatedAt:   e.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO alert (id, teacher_id, student_id, student_name, message, mood, risk_level, created_at)
		VALUES (:id, :teacher_id, :student_id, :student_name, :message, :mood, :risk_level, :created_at)`, row)
	if err != nil {
		return alert.Entry{}, errors.Wrap(err, "inserting alert")
	}
	return repo.unrow(row), nil
}

func (repo alertRepository) QueryAlerts(ctx context.Context, teacherID string) ([]alert.Entry, error) {
	var rows []alertRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM alert
		WHERE teacher_id = $1
		ORDER BY created_at DESC`, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying alerts")
	}

	entries := make([]alert.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, repo.unrow(r))
	}
	return entries, nil
}

func (repo alertRepository) CountAlertsSince(ctx context.Context, teacherID string, since time.Time) (int, error) {
	var cnt int
	err := repo.db.GetContext(ctx, &cnt, `
		SELECT COUNT(*) FROM alert
		WHERE teacher_id = $1 AND created_at >= $2`, teacherID, since.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "counting alerts")
	}
	return cnt, nil
}

func (repo alertRepository) SetLatestAlertStudentName(ctx context.Context, teacherID, studentID, name string) error {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE alert SET student_name = $1
		WHERE id = (
			SELECT id FROM alert
			WHERE teacher_id = $2 AND student_id = $3
			ORDER BY created_at DESC
			LIMIT 1
		)`, name, teacherID, studentID)
	if err != nil {
		return errors.Wrap(err, "updating alert student name")
	}
	return nil
}
