package teacher

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pulseed/pulseed/core"
)

// Teacher is an authenticated account owning a class roster identified by
// its Code.
type Teacher struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Code         string    `json:"teacher_code"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (t *Teacher) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

func (t *Teacher) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(t.PasswordHash, []byte(pwd))
}

// Student is an anonymous session member of a teacher's class. No name,
// no credentials; only the class linkage established by the code at join
// time.
type Student struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	Code      string    `json:"teacher_code"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewTeacher contains information needed to sign up a new Teacher.
type NewTeacher struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nt *NewTeacher) Validate(svc *Service) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)

	if err := core.Validate.Struct(nt); err != nil {
		return err
	}
	return svc.checkEmailUniqueness(nt.Email)
}

// JoinClass is the payload a student presents to associate with a teacher.
type JoinClass struct {
	Code string `json:"teacher_code" validate:"required,teachercode"`
}

func (jc *JoinClass) Validate() error {
	jc.Code = strings.ToUpper(core.CleanString(jc.Code))
	return core.Validate.Struct(jc)
}
