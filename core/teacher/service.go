package teacher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulseed/pulseed/core"
)

var (
	// errors
	ErrNotFound    = errors.New("teacher not found")
	ErrEmailExists = errors.New("a teacher with this email already exists")
	ErrInvalidCode = errors.New("invalid teacher code")

	errCodeSpaceExhausted = errors.New("could not generate a unique teacher code")
)

const maxCodeAttempts = 5

type (
	Repository interface {
		CheckTeacherEmailUniqueness(ctx context.Context, email string, excluded ...Teacher) error
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		GetTeacherByEmail(ctx context.Context, email string) (Teacher, error)
		GetTeacherByCode(ctx context.Context, code string) (Teacher, error)
		QueryAllTeachers(ctx context.Context) ([]Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)

		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) checkEmailUniqueness(email string, excl ...Teacher) error {
	if err := svc.repo.CheckTeacherEmailUniqueness(context.Background(), email, excl...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Signup creates a Teacher with a freshly generated unique class code.
func (svc *Service) Signup(ctx context.Context, nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	t := Teacher{
		Name:      nt.Name,
		Email:     nt.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.SetPassword(nt.Password); err != nil {
		return Teacher{}, err
	}

	code, err := svc.uniqueCode(ctx)
	if err != nil {
		return Teacher{}, err
	}
	t.Code = code

	return svc.repo.CreateTeacher(ctx, t)
}

// uniqueCode retries generation on collision; the repository stays the
// single source of truth for uniqueness.
func (svc *Service) uniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, err = svc.repo.GetTeacherByCode(ctx, code); err == ErrNotFound {
			return code, nil
		} else if err != nil {
			return "", err
		}
		svc.logger.Warn(fmt.Sprintf("teacher: code collision on %q, retrying", code))
	}
	return "", errCodeSpaceExhausted
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Teacher, error) {
	return svc.repo.GetTeacherByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryAllTeachers(ctx)
}

func (svc *Service) SetLastLogin(ctx context.Context, t Teacher) (Teacher, error) {
	t.LastLogin = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

// SetPassword resets a teacher's password (admin CLI path).
func (svc *Service) SetPassword(ctx context.Context, t Teacher, pwd string) (Teacher, error) {
	if err := t.SetPassword(pwd); err != nil {
		return Teacher{}, err
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

// Join verifies the presented class code and creates an anonymous Student
// linked to the owning teacher.
func (svc *Service) Join(ctx context.Context, jc JoinClass) (Student, error) {
	t, err := svc.repo.GetTeacherByCode(ctx, jc.Code)
	if err != nil {
		if err == ErrNotFound {
			return Student{}, core.NewValidationError(
				ErrInvalidCode, core.FieldError{Field: "teacher_code", Error: ErrInvalidCode.Error()})
		}
		return Student{}, err
	}

	s := Student{
		TeacherID: t.ID,
		Code:      t.Code,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}
