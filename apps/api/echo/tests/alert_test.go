package tests

import (
	"context"
	"net/http"
	"testing"

	echoapi "github.com/pulseed/pulseed/apps/api/echo"
	"github.com/pulseed/pulseed/core/risk"
	emailsvc "github.com/pulseed/pulseed/services/email"
	testutil "github.com/pulseed/pulseed/tests"
)

func Test_alertApi_classify(t *testing.T) {
	app, completer, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	student := testutil.CreateStudent(t, tchrRepo, tchr)
	studentToken := getStudentToken(t, student)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Student required", token: getTeacherToken(t, tchr), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: studentToken, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"message": "this field is required"}),
		},
		{
			name: "low risk stays put", token: studentToken,
			body:     marshalObj(t, echoapi.ClassifyRequest{Message: "what time is the field trip"}),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.ClassifyResponse{Risk: risk.TierLow}),
		},
		{
			name: "high risk redirects", token: studentToken,
			body:     marshalObj(t, echoapi.ClassifyRequest{Message: "I want to hurt myself"}),
			wantCode: http.StatusSeeOther,
			extra:    "/support?risk=high_risk",
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/messages/classify"

		t.Run(tt.name, func(t *testing.T) {
			completer.Reply = "low_risk"

			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if location, ok := tt.extra.(string); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				if got := rec.Header().Get("Location"); got != location {
					t.Errorf("failed! Location = %q; want %q", got, location)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	// the redirected classification also reached the teacher
	alerts, err := alertRepo.QueryAlerts(context.Background(), tchr.ID)
	if err != nil {
		t.Fatalf("QueryAlerts() failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d; want 1", len(alerts))
	}
	if alerts[0].RiskLevel != risk.TierHigh || alerts[0].StudentID != student.ID {
		t.Errorf("alert = %+v", alerts[0])
	}
	if len(emailsvc.GetSentMessages()) != 1 {
		t.Errorf("emails = %d; want 1", len(emailsvc.GetSentMessages()))
	}
}

func Test_alertApi_create(t *testing.T) {
	app, completer, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	student := testutil.CreateStudent(t, tchrRepo, tchr)
	studentToken := getStudentToken(t, student)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "required fields", token: studentToken, wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"message": "this field is required"}),
		},
		{
			name: "low-risk message is not recorded", token: studentToken,
			body:     marshalObj(t, echoapi.NewAlertRequest{Message: "can we have pizza on friday"}),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.NewAlertResponse{Success: false, Risk: risk.TierLow}),
		},
		{
			name: "terrible mood is recorded with the shared name", token: studentToken,
			body:     marshalObj(t, echoapi.NewAlertRequest{Message: "there is no reason to live anymore", Mood: "terrible", StudentName: "Zoe"}),
			wantCode: http.StatusOK,
			wantData: marshalObj(t, echoapi.NewAlertResponse{Success: true, Risk: risk.TierHigh}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/alerts"

		t.Run(tt.name, func(t *testing.T) {
			completer.Reply = "low_risk"

			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	alerts, err := alertRepo.QueryAlerts(context.Background(), tchr.ID)
	if err != nil {
		t.Fatalf("QueryAlerts() failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d; want 1", len(alerts))
	}
	if alerts[0].StudentName != "Zoe" || alerts[0].Mood != "terrible" {
		t.Errorf("alert = %+v", alerts[0])
	}
}

func Test_alertApi_query(t *testing.T) {
	app, _, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	other := testutil.CreateTeacher(t, tchrRepo, "Mr B", "b@test.cd", "s3cretpass", testutil.Code(2))
	student := testutil.CreateStudent(t, tchrRepo, tchr)

	a := testutil.CreateAlert(t, alertRepo, tchr.ID, student.ID, risk.TierMedium, "rough day")

	tests := []httpTest{
		{name: "Auth required", token: "", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Teacher required", token: getStudentToken(t, student), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Own alerts", token: getTeacherToken(t, tchr), wantCode: http.StatusOK, wantData: marshalList(t, a)},
		{name: "Other teacher sees nothing", token: getTeacherToken(t, other), wantCode: http.StatusOK, wantData: marshalList(t)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/alerts"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
