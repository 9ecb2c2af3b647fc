package digestsvc

import (
	"context"
	"net/mail"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/teacher"
)

const runTimeout = 2 * time.Minute

type (
	// Digest is what each teacher receives every school-day morning:
	// yesterday's check-in volume, mood breakdown and alert count.
	Digest struct {
		TeacherName   string
		Day           string
		Total         int
		MoodCounts    map[string]int
		NegativeRatio float64
		AlertCount    int
	}

	Service struct {
		teacherSvc  *teacher.Service
		feedbackSvc *feedback.Service
		alertSvc    *alert.Service
		mailSvc     core.EmailService
		logger      core.Logger

		cron *cron.Cron
		spec string
	}
)

func NewService(
	conf *core.Config,
	teacherSvc *teacher.Service,
	feedbackSvc *feedback.Service,
	alertSvc *alert.Service,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		teacherSvc:  teacherSvc,
		feedbackSvc: feedbackSvc,
		alertSvc:    alertSvc,
		mailSvc:     mailSvc,
		logger:      logger,
		spec:        conf.Digest.CronSpec,
	}
}

// Start schedules the digest and returns. Call Stop on shutdown.
func (svc *Service) Start() error {
	svc.cron = cron.New()
	_, err := svc.cron.AddFunc(svc.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		svc.Run(ctx)
	})
	if err != nil {
		return err
	}
	svc.cron.Start()
	return nil
}

func (svc *Service) Stop() {
	if svc.cron != nil {
		<-svc.cron.Stop().Done()
	}
}

// Run builds and mails yesterday's digest for every teacher. Per-teacher
// failures are logged and skipped so one bad inbox cannot starve the rest.
func (svc *Service) Run(ctx context.Context) {
	teachers, err := svc.teacherSvc.QueryAll(ctx)
	if err != nil {
		svc.logger.Error("digest: failed to query teachers", err)
		return
	}

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	for _, tchr := range teachers {
		dig, err := svc.build(ctx, tchr, yesterday)
		if err != nil {
			svc.logger.Error("digest: failed to build digest for "+tchr.Email, err)
			continue
		}
		if dig.Total == 0 && dig.AlertCount == 0 {
			continue
		}
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: tchr.Name, Address: tchr.Email}},
			Subject:      "Your class mood digest for " + dig.Day,
			TemplateName: "digest",
			TemplateData: dig,
		})
	}
}

func (svc *Service) build(ctx context.Context, tchr teacher.Teacher, day time.Time) (Digest, error) {
	entries, err := svc.feedbackSvc.QueryByDay(ctx, tchr.ID, day)
	if err != nil {
		return Digest{}, err
	}
	stats := feedback.Aggregate(entries)

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	alertCount, err := svc.alertSvc.CountSince(ctx, tchr.ID, dayStart)
	if err != nil {
		return Digest{}, err
	}

	counts := make(map[string]int, len(stats.MoodCounts))
	for mood, n := range stats.MoodCounts {
		counts[mood.String()] = n
	}
	return Digest{
		TeacherName:   tchr.Name,
		Day:           day.Format("Monday, Jan 2"),
		Total:         stats.Total,
		MoodCounts:    counts,
		NegativeRatio: stats.NegativeRatio,
		AlertCount:    alertCount,
	}, nil
}
