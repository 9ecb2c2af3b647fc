package digestsvc

import (
	"context"
	"testing"
	"time"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/risk"
	"github.com/pulseed/pulseed/core/teacher"
	inmemdb "github.com/pulseed/pulseed/storage/database/inmem"
	testutil "github.com/pulseed/pulseed/tests"
)

type captureMailService struct {
	sent []*core.EmailMessage
}

var _ core.EmailService = (*captureMailService)(nil)

func (svc *captureMailService) SendMessages(messages ...*core.EmailMessage) {
	svc.sent = append(svc.sent, messages...)
}

func TestService_Run(t *testing.T) {
	db := inmemdb.Open()
	tchrRepo := inmemdb.NewTeacherRepository(db)
	fbRepo := inmemdb.NewFeedbackRepository(db)
	alertRepo := inmemdb.NewAlertRepository(db)

	logger := testutil.NewLogger()
	mailSvc := &captureMailService{}

	conf := testutil.NewConfig()
	tchrSvc := teacher.NewService(tchrRepo, logger)
	svc := NewService(
		conf,
		tchrSvc,
		feedback.NewService(fbRepo, logger),
		alert.NewService(alertRepo, tchrSvc, mailSvc, logger),
		mailSvc,
		logger,
	)

	active := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	idle := testutil.CreateTeacher(t, tchrRepo, "Mr B", "b@test.cd", "s3cretpass", testutil.Code(2))
	student := testutil.CreateStudent(t, tchrRepo, active)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	testutil.CreateFeedback(t, fbRepo, student.ID, active.ID, feedback.MoodBad, "rough day", yesterday)
	testutil.CreateFeedback(t, fbRepo, student.ID, active.ID, feedback.MoodGreat, "", yesterday)
	testutil.CreateAlert(t, alertRepo, active.ID, student.ID, risk.TierMedium, "rough day", yesterday)

	// old activity outside the digest window
	lastWeek := yesterday.AddDate(0, 0, -6)
	testutil.CreateFeedback(t, fbRepo, student.ID, active.ID, feedback.MoodOkay, "", lastWeek)

	svc.Run(context.Background())

	if len(mailSvc.sent) != 1 {
		t.Fatalf("emails sent = %d; want 1 (idle teacher %s skipped)", len(mailSvc.sent), idle.Email)
	}
	msg := mailSvc.sent[0]
	if msg.To[0].Address != active.Email {
		t.Errorf("To = %q; want %q", msg.To[0].Address, active.Email)
	}
	if msg.TemplateName != "digest" {
		t.Errorf("TemplateName = %q; want %q", msg.TemplateName, "digest")
	}

	dig, ok := msg.TemplateData.(Digest)
	if !ok {
		t.Fatalf("TemplateData is %T; want Digest", msg.TemplateData)
	}
	if dig.Total != 2 {
		t.Errorf("Total = %d; want 2", dig.Total)
	}
	if dig.MoodCounts[feedback.MoodBad.String()] != 1 || dig.MoodCounts[feedback.MoodGreat.String()] != 1 {
		t.Errorf("MoodCounts = %v", dig.MoodCounts)
	}
	if dig.NegativeRatio != 0.5 {
		t.Errorf("NegativeRatio = %v; want 0.5", dig.NegativeRatio)
	}
	if dig.AlertCount != 1 {
		t.Errorf("AlertCount = %d; want 1", dig.AlertCount)
	}
	if dig.Day != yesterday.Format("Monday, Jan 2") {
		t.Errorf("Day = %q", dig.Day)
	}
}
