package teacher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulseed/pulseed/core"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// fakeRepo is a map-backed Repository for service tests.
type fakeRepo struct {
	teachers map[string]Teacher
	students map[string]Student
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{teachers: make(map[string]Teacher), students: make(map[string]Student)}
}

func (r *fakeRepo) CheckTeacherEmailUniqueness(_ context.Context, email string, excluded ...Teacher) error {
	for _, t := range r.teachers {
		if t.Email != email {
			continue
		}
		var skip bool
		for _, excl := range excluded {
			if excl.ID == t.ID {
				skip = true
			}
		}
		if !skip {
			return ErrEmailExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateTeacher(_ context.Context, t Teacher) (Teacher, error) {
	t.ID = uuid.New().String()
	r.teachers[t.ID] = t
	return t, nil
}

func (r *fakeRepo) GetTeacherByID(_ context.Context, id string) (Teacher, error) {
	if t, ok := r.teachers[id]; ok {
		return t, nil
	}
	return Teacher{}, ErrNotFound
}

func (r *fakeRepo) GetTeacherByEmail(_ context.Context, email string) (Teacher, error) {
	for _, t := range r.teachers {
		if t.Email == email {
			return t, nil
		}
	}
	return Teacher{}, ErrNotFound
}

func (r *fakeRepo) GetTeacherByCode(_ context.Context, code string) (Teacher, error) {
	for _, t := range r.teachers {
		if t.Code == code {
			return t, nil
		}
	}
	return Teacher{}, ErrNotFound
}

func (r *fakeRepo) QueryAllTeachers(_ context.Context) ([]Teacher, error) {
	teachers := make([]Teacher, 0, len(r.teachers))
	for _, t := range r.teachers {
		teachers = append(teachers, t)
	}
	return teachers, nil
}

func (r *fakeRepo) UpdateTeacher(_ context.Context, t Teacher) (Teacher, error) {
	if _, ok := r.teachers[t.ID]; !ok {
		return Teacher{}, ErrNotFound
	}
	r.teachers[t.ID] = t
	return t, nil
}

func (r *fakeRepo) CreateStudent(_ context.Context, s Student) (Student, error) {
	s.ID = uuid.New().String()
	r.students[s.ID] = s
	return s, nil
}

func (r *fakeRepo) GetStudentByID(_ context.Context, id string) (Student, error) {
	if s, ok := r.students[id]; ok {
		return s, nil
	}
	return Student{}, ErrNotFound
}

func Test_generateCode(t *testing.T) {
	defer func() { randReadFunc = realRandRead }()

	t.Run("maps bytes onto the code alphabet", func(t *testing.T) {
		randReadFunc = func(buf []byte) (int, error) {
			for i := range buf {
				buf[i] = byte(i)
			}
			return len(buf), nil
		}
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode() failed: %v", err)
		}
		if len(code) != codeLen {
			t.Errorf("len(code) = %d; want %d", len(code), codeLen)
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Errorf("code %q contains %q, not in alphabet", code, c)
			}
		}
	})

	t.Run("propagates random source errors", func(t *testing.T) {
		randReadFunc = func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
		if _, err := generateCode(); err == nil {
			t.Error("generateCode() expected error, got nil")
		}
	})
}

var realRandRead = randReadFunc

func TestService_Signup(t *testing.T) {
	defer func() { randReadFunc = realRandRead }()

	repo := newFakeRepo()
	svc := NewService(repo, nopLogger{})
	ctx := context.Background()

	tchr, err := svc.Signup(ctx, NewTeacher{
		Name:            "Amina Diallo",
		Email:           "amina@test.cd",
		Password:        "s3cretpass",
		PasswordConfirm: "s3cretpass",
	})
	if err != nil {
		t.Fatalf("Signup() failed: %v", err)
	}
	if tchr.ID == "" {
		t.Error("Signup() did not assign an ID")
	}
	if len(tchr.Code) != codeLen {
		t.Errorf("len(Code) = %d; want %d", len(tchr.Code), codeLen)
	}
	if err = tchr.CheckPassword("s3cretpass"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
	if err = tchr.CheckPassword("wrong"); err == nil {
		t.Error("CheckPassword() accepted a wrong password")
	}

	t.Run("retries code generation on collision", func(t *testing.T) {
		var calls int
		randReadFunc = func(buf []byte) (int, error) {
			for i := range buf {
				buf[i] = byte(calls) // same code per call, new code each call
			}
			calls++
			return len(buf), nil
		}

		// force the first generated code to collide with an existing teacher
		first := make([]byte, codeLen)
		for i := range first {
			first[i] = codeAlphabet[int(byte(calls))%len(codeAlphabet)]
		}
		repo.teachers["seed"] = Teacher{ID: "seed", Email: "seed@test.cd", Code: string(first)}

		tchr, err := svc.Signup(ctx, NewTeacher{
			Name:            "Jonas M",
			Email:           "jonas@test.cd",
			Password:        "s3cretpass",
			PasswordConfirm: "s3cretpass",
		})
		if err != nil {
			t.Fatalf("Signup() failed: %v", err)
		}
		if calls < 2 {
			t.Errorf("generateCode called %d times; want at least 2", calls)
		}
		if tchr.Code == string(first) {
			t.Error("Signup() kept a colliding code")
		}
	})
}

func TestService_Join(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nopLogger{})
	ctx := context.Background()

	now := time.Now().UTC()
	repo.teachers["t1"] = Teacher{ID: "t1", Email: "t@test.cd", Code: "ABCDEF", CreatedAt: now}

	t.Run("valid code creates a linked student", func(t *testing.T) {
		s, err := svc.Join(ctx, JoinClass{Code: "ABCDEF"})
		if err != nil {
			t.Fatalf("Join() failed: %v", err)
		}
		if s.TeacherID != "t1" {
			t.Errorf("student TeacherID = %q; want %q", s.TeacherID, "t1")
		}
		if s.ID == "" {
			t.Error("Join() did not assign a student ID")
		}
	})

	t.Run("unknown code is a validation error", func(t *testing.T) {
		_, err := svc.Join(ctx, JoinClass{Code: "ZZZZZZ"})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("Join() error = %v; want *core.ValidationError", err)
		}
		if len(vErr.Fields) == 0 || vErr.Fields[0].Field != "teacher_code" {
			t.Errorf("validation error fields = %+v; want teacher_code", vErr.Fields)
		}
	})
}
