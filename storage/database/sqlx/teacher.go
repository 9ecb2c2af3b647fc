package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/pulseed/pulseed/core/teacher"
)

type (
	teacherRow struct {
		ID           string    `db:"id"`
		Name         string    `db:"name"`
		Email        string    `db:"email"`
		Code         string    `db:"code"`
		PasswordHash []byte    `db:"password_hash"`
		CreatedAt    time.Time `db:"created_at"`
		UpdatedAt    time.Time `db:"updated_at"`
		LastLogin    null.Time `db:"last_login"`
	}

	studentRow struct {
		ID        string    `db:"id"`
		TeacherID string    `db:"teacher_id"`
		Code      string    `db:"code"`
		CreatedAt time.Time `db:"created_at"`
	}

	teacherRepository struct {
		db *sqlx.DB
	}
)

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) *teacherRepository {
	return &teacherRepository{db: db}
}

func (repo teacherRepository) row(t teacher.Teacher) teacherRow {
	return teacherRow{
		ID:           t.ID,
		Name:         t.Name,
		Email:        t.Email,
		Code:         t.Code,
		PasswordHash: t.PasswordHash,
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(t.LastLogin.UTC(), !t.LastLogin.IsZero()),
	}
}

func (repo teacherRepository) unrow(r teacherRow) teacher.Teacher {
	return teacher.Teacher{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Code:         r.Code,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to teacher.ErrNotFound
func (repo teacherRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return teacher.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo teacherRepository) CheckTeacherEmailUniqueness(ctx context.Context, email string, excluded ...teacher.Teacher) error {
	query := `SELECT EXISTS (SELECT 1 FROM teacher WHERE email = ?)`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, t := range excluded {
			ids = append(ids, t.ID)
		}
		query = `SELECT EXISTS (SELECT 1 FROM teacher WHERE email = ? AND id NOT IN (?))`
		var err error
		if query, args, err = sqlx.In(query, email, ids); err != nil {
			return errors.Wrap(err, "checking teacher uniqueness")
		}
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking teacher uniqueness")
	}
	if exists {
		return teacher.ErrEmailExists
	}
	return nil
}

func (repo teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.ID = uuid.New().String()
	row := repo.row(t)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO teacher (id, name, email, code, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :code, :password_hash, :created_at, :updated_at, :last_login)`, row)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return repo.unrow(row), nil
}

func (repo teacherRepository) GetTeacherByID(ctx context.Context, id string) (teacher.Teacher, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teacher.Teacher{}, teacher.ErrNotFound
	}

	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM teacher WHERE id = $1`, id); err != nil {
		return teacher.Teacher{}, repo.trapNoRowsErr(err, "finding teacher by ID")
	}
	return repo.unrow(row), nil
}

func (repo teacherRepository) GetTeacherByEmail(ctx context.Context, email string) (teacher.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM teacher WHERE email = $1`, email); err != nil {
		return teacher.Teacher{}, repo.trapNoRowsErr(err, "finding teacher by email")
	}
	return repo.unrow(row), nil
}

func (repo teacherRepository) GetTeacherByCode(ctx context.Context, code string) (teacher.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM teacher WHERE code = $1`, code); err != nil {
		return teacher.Teacher{}, repo.trapNoRowsErr(err, "finding teacher by code")
	}
	return repo.unrow(row), nil
}

func (repo teacherRepository) QueryAllTeachers(ctx context.Context) ([]teacher.Teacher, error) {
	var rows []teacherRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM teacher ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}

	teachers := make([]teacher.Teacher, 0, len(rows))
	for _, r := range rows {
		teachers = append(teachers, repo.unrow(r))
	}
	return teachers, nil
}

func (repo teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	t.UpdatedAt = time.Now().UTC()
	row := repo.row(t)
	_, err := repo.db.NamedExecContext(ctx, `
		UPDATE teacher
		SET name = :name, email = :email, code = :code, password_hash = :password_hash,
		    updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, row)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	return repo.unrow(row), nil
}

func (repo teacherRepository) CreateStudent(ctx context.Context, s teacher.Student) (teacher.Student, error) {
	s.ID = uuid.New().String()
	row := studentRow(s)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO student (id, teacher_id, code, created_at)
		VALUES (:id, :teacher_id, :code, :created_at)`, row)
	if err != nil {
		return teacher.Student{}, errors.Wrap(err, "inserting student")
	}
	return teacher.Student(row), nil
}

func (repo teacherRepository) GetStudentByID(ctx context.Context, id string) (teacher.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return teacher.Student{}, teacher.ErrNotFound
	}

	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return teacher.Student{}, repo.trapNoRowsErr(err, "finding student by ID")
	}
	return teacher.Student(row), nil
}
