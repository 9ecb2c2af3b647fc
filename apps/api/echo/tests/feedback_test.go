package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	echoapi "github.com/pulseed/pulseed/apps/api/echo"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/risk"
	emailsvc "github.com/pulseed/pulseed/services/email"
	"github.com/pulseed/pulseed/storage/database"
	testutil "github.com/pulseed/pulseed/tests"
)

func Test_feedbackApi_submit(t *testing.T) {
	app, completer, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	student := testutil.CreateStudent(t, tchrRepo, tchr)
	studentToken := getStudentToken(t, student)

	type extraTest struct {
		alerts     int
		emails     int
		modelCalls int
	}
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Student required", token: getTeacherToken(t, tchr), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: studentToken, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"mood": "this field is required"}),
		},
		{
			name: "unknown mood", token: studentToken, body: marshalObj(t, feedback.NewEntry{Mood: "meh"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"mood": "mood must be one of [terrible bad okay good great]"}),
		},
		{
			name: "calm check-in", token: studentToken, body: marshalObj(t, feedback.NewEntry{Mood: "good"}),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.SubmitFeedbackResponse{Risk: risk.TierLow}),
			extra:    extraTest{},
		},
		{
			name: "terrible mood routes to support", token: studentToken,
			body:     marshalObj(t, feedback.NewEntry{Mood: "terrible"}),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.SubmitFeedbackResponse{Risk: risk.TierLow, Redirect: "/support?risk=low_risk"}),
			extra:    extraTest{},
		},
		{
			name: "keyword match skips the model", token: studentToken,
			body:     marshalObj(t, feedback.NewEntry{Mood: "bad", Message: "I want to kill myself"}),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.SubmitFeedbackResponse{Risk: risk.TierHigh, Redirect: "/support?risk=high_risk"}),
			extra:    extraTest{alerts: 1, emails: 1},
		},
		{
			name: "model classification", token: studentToken,
			body:     marshalObj(t, feedback.NewEntry{Mood: "okay", Message: "nobody ever picks me for anything"}),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.SubmitFeedbackResponse{Risk: risk.TierMedium, Redirect: "/support?risk=medium_risk"}),
			extra:    extraTest{alerts: 1, emails: 1, modelCalls: 1},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/feedback"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ClearSentMessages()
			completer.Requests = nil
			completer.Reply = "medium_risk"

			prevAlerts, err := alertRepo.QueryAlerts(context.Background(), tchr.ID)
			if err != nil {
				t.Fatalf("QueryAlerts() failed: %v", err)
			}

			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				alerts, err := alertRepo.QueryAlerts(context.Background(), tchr.ID)
				if err != nil {
					t.Fatalf("QueryAlerts() failed: %v", err)
				}
				if got := len(alerts) - len(prevAlerts); got != extra.alerts {
					t.Errorf("failed! new alerts = %d; want %d", got, extra.alerts)
				}
				if got := len(emailsvc.GetSentMessages()); got != extra.emails {
					t.Errorf("failed! emails = %d; want %d", got, extra.emails)
				}
				if got := completer.CallCount(); got != extra.modelCalls {
					t.Errorf("failed! model calls = %d; want %d", got, extra.modelCalls)
				}
			}
		})
	}
}

func Test_feedbackApi_query(t *testing.T) {
	app, _, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	student := testutil.CreateStudent(t, tchrRepo, tchr)

	e1 := testutil.CreateFeedback(t, fbRepo, student.ID, tchr.ID, feedback.MoodBad, "rough day", time.Now().UTC().Add(-time.Hour))
	e2 := testutil.CreateFeedback(t, fbRepo, student.ID, tchr.ID, feedback.MoodGood, "")

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Teacher required", token: getStudentToken(t, student), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Active entries, newest first", token: getTeacherToken(t, tchr), wantCode: http.StatusOK, wantData: marshalList(t, e2, e1)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/feedback"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_feedbackApi_history(t *testing.T) {
	app, _, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	student := testutil.CreateStudent(t, tchrRepo, tchr)
	token := getTeacherToken(t, tchr)

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	inDay := testutil.CreateFeedback(t, fbRepo, student.ID, tchr.ID, feedback.MoodOkay, "", day.Add(9*time.Hour))
	testutil.CreateFeedback(t, fbRepo, student.ID, tchr.ID, feedback.MoodGood, "", day.AddDate(0, 0, 1))

	tests := []httpTest{
		{name: "Auth required", path: "/v1/feedback/history?date=2026-03-02", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "date required", path: "/v1/feedback/history", token: token, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"date": "must be a YYYY-MM-DD date"}),
		},
		{
			name: "invalid date", path: "/v1/feedback/history?date=yesterday", token: token, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"date": "must be a YYYY-MM-DD date"}),
		},
		{name: "day entries", path: "/v1/feedback/history?date=2026-03-02", token: token, wantCode: http.StatusOK, wantData: marshalList(t, inDay)},
		{name: "empty day", path: "/v1/feedback/history?date=2026-03-04", token: token, wantCode: http.StatusOK, wantData: marshalList(t)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_feedbackApi_reset(t *testing.T) {
	app, _, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	student := testutil.CreateStudent(t, tchrRepo, tchr)
	token := getTeacherToken(t, tchr)

	testutil.CreateFeedback(t, fbRepo, student.ID, tchr.ID, feedback.MoodBad, "rough day")

	req, rec := newAuthRequest(http.MethodPost, "/v1/feedback/reset", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
	}

	// archived entries are gone from the active window but kept in history
	req, rec = newAuthRequest(http.MethodGet, "/v1/feedback", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalList(t)}, rec)

	day := time.Now().UTC().Format("2006-01-02")
	req, rec = newAuthRequest(http.MethodGet, "/v1/feedback/history?date="+day, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); !strings.Contains(body, "rough day") {
		t.Errorf("failed! archived entry missing from history: %s", body)
	}
}

func Test_feedbackApi_stream(t *testing.T) {
	app, _, broker := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	token := getTeacherToken(t, tchr)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/feedback/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.ServeHTTP(rec, req)
	}()

	// wait for the handler to subscribe
	deadline := time.Now().Add(2 * time.Second)
	for broker.subscribers(tchr.ID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream handler never subscribed")
		}
		time.Sleep(time.Millisecond)
	}

	broker.Publish(database.FeedbackEvent{ID: "f1", TeacherID: tchr.ID, Mood: "bad", CreatedAt: time.Now().UTC()})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("failed! Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.Contains(body, `"teacher_id":"`+tchr.ID+`"`) {
		t.Errorf("failed! unexpected stream body: %q", body)
	}
}
