package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/pulseed/pulseed/apps/api/echo"
	"github.com/pulseed/pulseed/core"
	"github.com/pulseed/pulseed/core/alert"
	"github.com/pulseed/pulseed/core/feedback"
	"github.com/pulseed/pulseed/core/insights"
	"github.com/pulseed/pulseed/core/risk"
	"github.com/pulseed/pulseed/core/support"
	"github.com/pulseed/pulseed/core/teacher"
	appfs "github.com/pulseed/pulseed/fs"
	emailsvc "github.com/pulseed/pulseed/services/email"
	openaisvc "github.com/pulseed/pulseed/services/openai"
	"github.com/pulseed/pulseed/storage/database"
	inmemdb "github.com/pulseed/pulseed/storage/database/inmem"
	testutil "github.com/pulseed/pulseed/tests"
)

var (
	conf      *core.Config
	tchrRepo  teacher.Repository
	fbRepo    feedback.Repository
	alertRepo alert.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// fakeBroker stands in for the Postgres feedback listener.
type fakeBroker struct {
	mutex sync.Mutex
	subs  map[string][]chan database.FeedbackEvent
}

var _ echoapi.FeedbackSubscriber = (*fakeBroker)(nil)

func newFakeBroker() *fakeBroker {
	return &fakeBroker{subs: make(map[string][]chan database.FeedbackEvent)}
}

func (b *fakeBroker) Subscribe(teacherID string) (<-chan database.FeedbackEvent, func()) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	ch := make(chan database.FeedbackEvent, 8)
	b.subs[teacherID] = append(b.subs[teacherID], ch)
	return ch, func() { close(ch) }
}

func (b *fakeBroker) subscribers(teacherID string) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subs[teacherID])
}

func (b *fakeBroker) Publish(ev database.FeedbackEvent) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, ch := range b.subs[ev.TeacherID] {
		ch <- ev
	}
}

// setup wires a full Server on in-memory repositories and a scripted
// completion mock.
func setup(t *testing.T) (*echoapi.Server, *openaisvc.Mock, *fakeBroker) {
	t.Helper()

	conf = testutil.NewConfig()
	testutil.InitValidators()

	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, appfs.EmailTemplates(), logger)
	emailsvc.ClearSentMessages()

	db := inmemdb.Open()
	tchrRepo = inmemdb.NewTeacherRepository(db)
	fbRepo = inmemdb.NewFeedbackRepository(db)
	alertRepo = inmemdb.NewAlertRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	completer := openaisvc.NewMock()
	broker := newFakeBroker()

	tchrSvc := teacher.NewService(tchrRepo, logger)
	feedbackSvc := feedback.NewService(fbRepo, logger)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		TeacherSvc:     tchrSvc,
		FeedbackSvc:    feedbackSvc,
		AlertSvc:       alert.NewService(alertRepo, tchrSvc, mailSvc, logger),
		RiskSvc:        risk.NewService(completer, conf.OpenAI.ClassifyModel, logger),
		SupportSvc:     support.NewService(completer, conf.OpenAI.ChatModel, logger),
		InsightsSvc:    insights.NewService(feedbackSvc, completer, conf.OpenAI.InsightsModel, logger),
		FeedbackEvents: broker,
	})
	return app, completer, broker
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getTeacherToken(t *testing.T, tchr teacher.Teacher) string {
	t.Helper()

	token, err := echoapi.GenerateToken(conf, echoapi.GetTeacherClaims(conf, tchr))
	if err != nil {
		t.Fatalf("getTeacherToken() failed: %v", err)
	}
	return token
}

func getStudentToken(t *testing.T, s teacher.Student) string {
	t.Helper()

	token, err := echoapi.GenerateToken(conf, echoapi.GetStudentClaims(conf, s))
	if err != nil {
		t.Fatalf("getStudentToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshalList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
