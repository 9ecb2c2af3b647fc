package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/pulseed/pulseed/apps/api/echo"
	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/insights"
	"github.com/pulseed/pulseed/core/risk"
	"github.com/pulseed/pulseed/core/support"
	"github.com/pulseed/pulseed/core/teacher"
	appfs "github.com/pulseed/pulseed/fs"
	digestsvc "github.com/pulseed/pulseed/services/digest"
	emailsvc "github.com/pulseed/pulseed/services/email"
	logsvc "github.com/pulseed/pulseed/services/logger"
	openaisvc "github.com/pulseed/pulseed/services/openai"
	"github.com/pulseed/pulseed/storage/database"
	sqlxrepos "github.com/pulseed/pulseed/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	completer := openaisvc.NewClient(conf)

	teacherSvc := teacher.NewService(sqlxrepos.NewTeacherRepository(db), logger)
	feedbackSvc := feedback.NewService(sqlxrepos.NewFeedbackRepository(db), logger)
	alertSvc := alert.NewService(sqlxrepos.NewAlertRepository(db), teacherSvc, mailSvc, logger)
	riskSvc := risk.NewService(completer, conf.OpenAI.ClassifyModel, logger)
	supportSvc := support.NewService(completer, conf.OpenAI.ChatModel, logger)
	insightsSvc := insights.NewService(feedbackSvc, completer, conf.OpenAI.InsightsModel, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, appfs.EmailTemplates(), logger)

	// =========================================================================
	// Start Feedback Listener & Daily Digest

	listener := database.NewFeedbackListener(conf, dbLogger)
	if err = listener.Start(); err != nil {
		logger.Fatal(fmt.Sprintf("starting feedback listener: %v", err), err)
	}
	defer listener.Stop()

	digest := digestsvc.NewService(conf, teacherSvc, feedbackSvc, alertSvc, mailSvc, logger)
	if conf.Digest.Enabled {
		if err = digest.Start(); err != nil {
			logger.Fatal(fmt.Sprintf("starting digest scheduler: %v", err), err)
		}
		defer digest.Stop()
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			TeacherSvc:     teacherSvc,
			FeedbackSvc:    feedbackSvc,
			AlertSvc:       alertSvc,
			RiskSvc:        riskSvc,
			SupportSvc:     supportSvc,
			InsightsSvc:    insightsSvc,
			FeedbackEvents: listener,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return sqlx.NewDb(db, conf.Database.Engine), nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
