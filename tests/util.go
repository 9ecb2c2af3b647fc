package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/risk"
	"github.com/pulseed/pulseed/core/teacher"
)

var validatorsOnce sync.Once

// NewConfig returns a config suitable for tests; no env files are read.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:           false,
		TestMode:        true,
		Env:             "TEST",
		AppName:         "PulseEd",
		SecretKey:       []byte("secret"),
		FrontendBaseURL: "http://localhost:3000",
		Server: core.ServerConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		OpenAI: core.OpenAIConfig{
			ClassifyModel: "gpt-4o-mini",
			ChatModel:     "gpt-4o-mini",
			InsightsModel: "gpt-4o",
		},
	}
}

// InitValidators wires the global validators once for the whole test binary.
func InitValidators() {
	validatorsOnce.Do(func() {
		_en := en.New()
		uni := ut.New(_en, _en)
		translator, _ := uni.GetTranslator("en")
		core.InitValidators(validator.New(), translator)
	})
}

// Logger is a core.Logger that records every message for assertions.
type Logger struct {
	mutex    sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(level, msg string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Enable(bool)                        {}
func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

func (l *Logger) Contains(substr string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for _, m := range l.Messages {
		if m == substr {
			return true
		}
	}
	return false
}

func CreateTeacher(t *testing.T, repo teacher.Repository, name, email, pwd, code string) teacher.Teacher {
	t.Helper()

	now := time.Now().UTC()
	tchr := teacher.Teacher{
		Name:      name,
		Email:     email,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := tchr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateTeacher() failed: %v", err)
		}
	}
	tchr, err := repo.CreateTeacher(context.Background(), tchr)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func CreateStudent(t *testing.T, repo teacher.Repository, tchr teacher.Teacher) teacher.Student {
	t.Helper()

	s, err := repo.CreateStudent(context.Background(), teacher.Student{
		TeacherID: tchr.ID,
		Code:      tchr.Code,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateFeedback(
	t *testing.T,
	repo feedback.Repository,
	studentID, teacherID string,
	mood feedback.Mood,
	message string,
	createdAt ...time.Time,
) feedback.Entry {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	e, err := repo.CreateFeedback(context.Background(), feedback.Entry{
		StudentID: studentID,
		TeacherID: teacherID,
		Mood:      mood,
		Message:   message,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateFeedback() failed: %v", err)
	}
	return e
}

func CreateAlert(
	t *testing.T,
	repo alert.Repository,
	teacherID, studentID string,
	tier risk.Tier,
	message string,
	createdAt ...time.Time,
) alert.Entry {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	e, err := repo.CreateAlert(context.Background(), alert.Entry{
		TeacherID:   teacherID,
		StudentID:   studentID,
		StudentName: alert.AnonymousName,
		Message:     message,
		Mood:        feedback.MoodBad.String(),
		RiskLevel:   tier,
		CreatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("CreateAlert() failed: %v", err)
	}
	return e
}

// Code returns a deterministic class code for fixtures, valid under the
// class-code alphabet.
func Code(n int) string {
	const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	return fmt.Sprintf("TEST%c%c", letters[n%len(letters)], letters[(n/len(letters))%len(letters)])
}
