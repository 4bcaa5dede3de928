package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/homeroom/apps/api/echo"
	"github.com/trezcool/homeroom/core"
	"github.com/trezcool/homeroom/core/account"
	"github.com/trezcool/homeroom/core/catalog"
	"github.com/trezcool/homeroom/core/community"
	"github.com/trezcool/homeroom/core/events"
	"github.com/trezcool/homeroom/core/idcard"
	"github.com/trezcool/homeroom/core/student"
	"github.com/trezcool/homeroom/core/transcript"
	"github.com/trezcool/homeroom/core/workpermit"
	"github.com/trezcool/homeroom/services/email"
	"github.com/trezcool/homeroom/storage/database/sqlx"
	"github.com/trezcool/homeroom/storage/objectstore"
	"github.com/trezcool/homeroom/tests/testutil"
)

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(core.NewTestConfig(), core.NopLogger())
	os.Exit(m.Run())
}

type testApp struct {
	conf    *core.Config
	server  *Server
	bus     *events.Bus
	mailSvc *emailsvc.MockService

	accRepo     *sqlxrepos.AccountRepository
	studentRepo *sqlxrepos.StudentRepository
	catalogRepo *sqlxrepos.CatalogRepository

	accounts *account.Service
	students *student.Service
}

// newTestApp wires the whole API over a fresh in-memory database.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()
	logger := core.NopLogger()
	db := testutil.NewDB(t)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	transcript.InitValidators(validate, translator)
	community.InitValidators(validate, translator)
	workpermit.InitValidators(validate, translator)
	idcard.InitValidators(validate, translator)

	app := &testApp{
		conf:        conf,
		bus:         events.NewBus(logger),
		mailSvc:     emailsvc.NewMockService(conf),
		accRepo:     sqlxrepos.NewAccountRepository(db),
		studentRepo: sqlxrepos.NewStudentRepository(db),
		catalogRepo: sqlxrepos.NewCatalogRepository(db),
	}

	store, err := objectstore.NewLocal(t.TempDir(), "/media")
	require.NoError(t, err)
	renderer, err := idcard.NewRenderer()
	require.NoError(t, err)

	app.accounts = account.NewService(app.accRepo, app.mailSvc, conf, logger)
	app.students = student.NewService(app.studentRepo, app.bus)
	catalogSvc := catalog.NewService(app.catalogRepo)
	transcripts := transcript.NewService(
		sqlxrepos.NewTranscriptRepository(db), app.students, app.accounts, catalogSvc, app.bus, conf, logger,
	)
	t.Cleanup(transcripts.Subscribe())
	communitySvc := community.NewService(sqlxrepos.NewCommunityRepository(db), app.accounts, app.mailSvc, app.bus, logger)
	t.Cleanup(communitySvc.Subscribe())

	app.server = NewServer(Deps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Bus:         app.bus,
		Accounts:    app.accounts,
		Students:    app.students,
		Catalog:     catalogSvc,
		Transcripts: transcripts,
		Community:   communitySvc,
		WorkPermits: workpermit.NewService(sqlxrepos.NewWorkPermitRepository(db), app.students, app.bus),
		IDCards: idcard.NewService(
			sqlxrepos.NewIDCardRepository(db), app.students, app.accounts, store, renderer, app.mailSvc, logger,
		),
	})
	return app
}

func (app *testApp) createAccount(t *testing.T, name, email string, roles ...string) (account.Account, string) {
	t.Helper()
	acc := testutil.CreateAccount(t, app.accRepo, name, email, roles...)
	token, err := NewToken(app.conf, acc)
	require.NoError(t, err)
	return acc, token
}

func (app *testApp) createStudent(t *testing.T, accountID, firstName string) student.Student {
	t.Helper()
	return testutil.CreateStudent(t, app.studentRepo, accountID, firstName, "Doe", student.Grade10)
}

// do serves one request and returns the recorded response.
func (app *testApp) do(method, path, token string, body ...interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if len(body) > 0 {
		switch b := body[0].(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
}

func (tt httpTest) run(t *testing.T, app *testApp) *httptest.ResponseRecorder {
	t.Helper()
	var rec *httptest.ResponseRecorder
	if tt.body != nil {
		rec = app.do(tt.method, tt.path, tt.token, tt.body)
	} else {
		rec = app.do(tt.method, tt.path, tt.token)
	}
	require.Equalf(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHome(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Welcome to Homeroom API!", rec.Body.String())
}
