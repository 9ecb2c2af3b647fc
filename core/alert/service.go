package alert

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/risk"
	"github.com/pulseed/pulseed/core/teacher"
)

// SupportPath is the support-flow location escalated students are sent to,
// with the resolved tier carried as a query parameter.
const SupportPath = "/support"

type (
	Repository interface {
		CreateAlert(ctx context.Context, e Entry) (Entry, error)
		// QueryAlerts returns a teacher's alerts, newest first.
		QueryAlerts(ctx context.Context, teacherID string) ([]Entry, error)
		CountAlertsSince(ctx context.Context, teacherID string, since time.Time) (int, error)
		// SetLatestAlertStudentName attaches a student-shared name to their
		// most recent alert, if any.
		SetLatestAlertStudentName(ctx context.Context, teacherID, studentID, name string) error
	}

	Service struct {
		repo       Repository
		teacherSvc *teacher.Service
		mailSvc    core.EmailService
		logger     core.Logger
	}

	// Input is the student identity context an escalation decision runs on.
	Input struct {
		Tier        risk.Tier
		Mood        feedback.Mood // empty on classify-only call sites
		Message     string
		StudentID   string
		StudentName string
		TeacherID   string // empty when the student has no class linkage
	}

	// Escalation tells the caller what happened and where to send the
	// student next.
	Escalation struct {
		Tier        risk.Tier
		Alerted     bool
		RedirectURL string // empty when no support routing is needed
	}
)

func NewService(repo Repository, teacherSvc *teacher.Service, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, teacherSvc: teacherSvc, mailSvc: mailSvc, logger: logger}
}

// Triggered reports whether the submission escalates: an elevated message
// tier, or a mood at the bottom of the scale. The two triggers are a plain
// OR with no precedence between them.
func Triggered(tier risk.Tier, mood feedback.Mood) bool {
	return tier.AtLeast(risk.TierMedium) || mood.Lowest()
}

// Escalate resolves the external actions for a classified submission:
// write one alert row when the tier is elevated and a teacher is linked,
// notify that teacher by email, and hand back the support redirect. Alert
// persistence failures are logged and never block the redirect — routing
// the student wins over bookkeeping.
func (svc *Service) Escalate(ctx context.Context, in Input) Escalation {
	esc := Escalation{Tier: in.Tier}
	if !Triggered(in.Tier, in.Mood) {
		return esc
	}
	esc.RedirectURL = SupportURL(in.Tier)

	// mood-only trigger: route to support, nothing to record
	if !in.Tier.AtLeast(risk.TierMedium) {
		return esc
	}

	if in.TeacherID == "" {
		svc.logger.Warn("alert: escalation without a linked teacher, skipping alert write")
		return esc
	}
	tchr, err := svc.teacherSvc.GetByID(ctx, in.TeacherID)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("alert: could not resolve teacher %s, skipping alert write", in.TeacherID), err)
		return esc
	}

	name := core.CleanString(in.StudentName)
	if name == "" {
		name = AnonymousName
	}
	entry := Entry{
		TeacherID:   tchr.ID,
		StudentID:   in.StudentID,
		StudentName: name,
		Message:     in.Message,
		Mood:        in.Mood.String(),
		RiskLevel:   in.Tier,
		CreatedAt:   time.Now().UTC(),
	}
	if entry, err = svc.repo.CreateAlert(ctx, entry); err != nil {
		svc.logger.Error("alert: failed to store alert", err)
		return esc
	}
	esc.Alerted = true

	svc.notify(tchr, entry)
	return esc
}

// notify mails the owning teacher about a fresh alert.
func (svc *Service) notify(tchr teacher.Teacher, entry Entry) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: tchr.Name, Address: tchr.Email}},
		Subject:      fmt.Sprintf("Student alert (%s)", entry.RiskLevel),
		TemplateName: "alert",
		TemplateData: entry,
	})
}

func (svc *Service) Query(ctx context.Context, teacherID string) ([]Entry, error) {
	return svc.repo.QueryAlerts(ctx, teacherID)
}

func (svc *Service) CountSince(ctx context.Context, teacherID string, since time.Time) (int, error) {
	return svc.repo.CountAlertsSince(ctx, teacherID, since)
}

// AttachStudentName links a name a student chose to share at the end of a
// support conversation to their most recent alert.
func (svc *Service) AttachStudentName(ctx context.Context, teacherID, studentID, name string) error {
	return svc.repo.SetLatestAlertStudentName(ctx, teacherID, studentID, core.CleanString(name))
}

// SupportURL encodes the tier into the support-flow location.
func SupportURL(tier risk.Tier) string {
	q := make(url.Values)
	q.Set("risk", tier.String())
	return SupportPath + "?" + q.Encode()
}
