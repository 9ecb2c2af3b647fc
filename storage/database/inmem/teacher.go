package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pulseed/pulseed/core/teacher"
)

type teacherRepository struct {
	teachers *teacherTable
	students *studentTable
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) *teacherRepository {
	return &teacherRepository{teachers: db.teacher, students: db.student}
}

func (repo *teacherRepository) query() []teacher.Teacher {
	teachers := make([]teacher.Teacher, 0, len(repo.teachers.table))
	for _, t := range repo.teachers.table {
		teachers = append(teachers, *t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].CreatedAt.Before(teachers[j].CreatedAt) })
	return teachers
}

func (repo *teacherRepository) CheckTeacherEmailUniqueness(ctx context.Context, email string, excluded ...teacher.Teacher) error {
	repo.teachers.mutex.RLock()
	defer repo.teachers.mutex.RUnlock()

	for _, t := range repo.teachers.table {
		if t.Email != email {
			continue
		}
		var skip bool
		for _, excl := range excluded {
			if excl.ID == t.ID {
				skip = true
				break
			}
		}
		if !skip {
			return teacher.ErrEmailExists
		}
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.teachers.mutex.Lock()
	defer repo.teachers.mutex.Unlock()

	t.ID = uuid.New().String()
	repo.teachers.table[t.ID] = &t
	return t, nil
}

func (repo *teacherRepository) GetTeacherByID(ctx context.Context, id string) (teacher.Teacher, error) {
	repo.teachers.mutex.RLock()
	defer repo.teachers.mutex.RUnlock()

	if t, ok := repo.teachers.table[id]; ok {
		return *t, nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) GetTeacherByEmail(ctx context.Context, email string) (teacher.Teacher, error) {
	repo.teachers.mutex.RLock()
	defer repo.teachers.mutex.RUnlock()

	for _, t := range repo.teachers.table {
		if t.Email == email {
			return *t, nil
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) GetTeacherByCode(ctx context.Context, code string) (teacher.Teacher, error) {
	repo.teachers.mutex.RLock()
	defer repo.teachers.mutex.RUnlock()

	for _, t := range repo.teachers.table {
		if t.Code == code {
			return *t, nil
		}
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) QueryAllTeachers(ctx context.Context) ([]teacher.Teacher, error) {
	repo.teachers.mutex.RLock()
	defer repo.teachers.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.teachers.mutex.Lock()
	defer repo.teachers.mutex.Unlock()

	if _, ok := repo.teachers.table[t.ID]; !ok {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	repo.teachers.table[t.ID] = &t
	return t, nil
}

func (repo *teacherRepository) CreateStudent(ctx context.Context, s teacher.Student) (teacher.Student, error) {
	repo.students.mutex.Lock()
	defer repo.students.mutex.Unlock()

	s.ID = uuid.New().String()
	repo.students.table[s.ID] = &s
	return s, nil
}

func (repo *teacherRepository) GetStudentByID(ctx context.Context, id string) (teacher.Student, error) {
	repo.students.mutex.RLock()
	defer repo.students.mutex.RUnlock()

	if s, ok := repo.students.table[id]; ok {
		return *s, nil
	}
	return teacher.Student{}, teacher.ErrNotFound
}
