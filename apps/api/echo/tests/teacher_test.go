package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	echoapi "github.com/pulseed/pulseed/apps/api/echo"
	"github.com/pulseed/pulseed/core/teacher"
	testutil "github.com/pulseed/pulseed/tests"
)

func Test_teacherApi_signup(t *testing.T) {
	app, _, _ := setup(t)

	testutil.CreateTeacher(t, tchrRepo, "Mrs K", "taken@test.cd", "s3cretpass", testutil.Code(1))

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"name": reqMsg, "email": reqMsg, "password": reqMsg, "password_confirm": reqMsg}),
		},
		{
			name:     "invalid email",
			body:     marshalObj(t, teacher.NewTeacher{Name: "Lol", Email: "lol", Password: "s3cretpass", PasswordConfirm: "s3cretpass"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name:     "short password",
			body:     marshalObj(t, teacher.NewTeacher{Name: "Lol", Email: "lol@test.cd", Password: "short", PasswordConfirm: "short"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"password": "password must be at least 8 characters in length"}),
		},
		{
			name:     "password mismatch",
			body:     marshalObj(t, teacher.NewTeacher{Name: "Lol", Email: "lol@test.cd", Password: "s3cretpass", PasswordConfirm: "s3cretpazz"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"password_confirm": "password_confirm must be equal to Password"}),
		},
		{
			name:     "email already taken",
			body:     marshalObj(t, teacher.NewTeacher{Name: "Lol", Email: "Taken@Test.CD", Password: "s3cretpass", PasswordConfirm: "s3cretpass"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "a teacher with this email already exists"}),
		},
		{
			name:     "signed up",
			body:     marshalObj(t, teacher.NewTeacher{Name: "Amina", Email: "amina@test.cd", Password: "s3cretpass", PasswordConfirm: "s3cretpass"}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/teachers/signup"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.SignupResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				if len(respData.Teacher.Code) != 6 {
					t.Errorf("failed! teacher code = %q; want 6 characters", respData.Teacher.Code)
				}
				if respData.Teacher.Email != "amina@test.cd" {
					t.Errorf("failed! email = %q", respData.Teacher.Email)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_teacherApi_login(t *testing.T) {
	app, _, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	authFailed := marshalObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name:     "unknown email",
			body:     marshalObj(t, echoapi.LoginRequest{Email: "who@test.cd", Password: "s3cretpass"}),
			wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name:     "wrong password",
			body:     marshalObj(t, echoapi.LoginRequest{Email: tchr.Email, Password: "wrongpass"}),
			wantCode: http.StatusBadRequest, wantData: authFailed,
		},
		{
			name:     "logged in",
			body:     marshalObj(t, echoapi.LoginRequest{Email: "K@Test.CD", Password: "s3cretpass"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/teachers/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.TokenResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_teacherApi_refreshToken(t *testing.T) {
	app, _, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	student := testutil.CreateStudent(t, tchrRepo, tchr)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   tchr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		Name:         tchr.Name,
		Email:        tchr.Email,
		IsTeacher:    true,
	}
	unrefreshableToken, err := echoapi.GenerateToken(conf, unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Teacher required", token: getStudentToken(t, student), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getTeacherToken(t, tchr), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/teachers/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the new token; just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.TokenResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_teacherApi_me(t *testing.T) {
	app, _, _ := setup(t)

	tchr := testutil.CreateTeacher(t, tchrRepo, "Mrs K", "k@test.cd", "s3cretpass", testutil.Code(1))
	student := testutil.CreateStudent(t, tchrRepo, tchr)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Teacher required", token: getStudentToken(t, student), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Own profile", token: getTeacherToken(t, tchr), wantCode: http.StatusOK, wantData: marshalObj(t, tchr)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/teachers/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
