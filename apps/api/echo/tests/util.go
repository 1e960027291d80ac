package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/ada/apps/api/echo"
	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/notify"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/receipt"
	"github.com/trezcool/ada/core/reconcile"
	"github.com/trezcool/ada/core/report"
	"github.com/trezcool/ada/core/student"
	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
	appfs "github.com/trezcool/ada/fs"
	"github.com/trezcool/ada/services/email"
	"github.com/trezcool/ada/services/objstore"
	"github.com/trezcool/ada/services/sms"
	"github.com/trezcool/ada/storage/database/inmem"
)

var (
	conf        *core.Config
	db          *inmemdb.DB
	tenantRepo  tenant.Repository
	usrRepo     user.Repository
	studentRepo student.Repository
	feeRepo     fee.Repository
	paymentRepo payment.Repository
	mailSvc     *emailsvc.ConsoleServiceMock
	smsSvc      *smssvc.ServiceMock

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func setup(t *testing.T) *Server {
	conf = core.NewTestConfig()
	conf.Receipts.Dir = t.TempDir()

	// set up DB & repos
	db = inmemdb.Open()
	tenantRepo = inmemdb.NewTenantRepository(db)
	usrRepo = inmemdb.NewUserRepository(db)
	studentRepo = inmemdb.NewStudentRepository(db)
	feeRepo = inmemdb.NewFeeRepository(db)
	paymentRepo = inmemdb.NewPaymentRepository(db)

	// set up validator
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up services
	logger := core.NewNopLogger()
	core.ParseEmailTemplates(appfs.FS, conf, logger)
	mailSvc = emailsvc.NewConsoleServiceMock(conf)
	smsSvc = smssvc.NewServiceMock()
	receipts, err := receipt.NewGenerator(appfs.FS, receipt.HTMLRenderer{}, objstore.NewLocalStore(conf.Receipts.Dir, conf.Receipts.BaseURL))
	if err != nil {
		t.Fatalf("receipt.NewGenerator() failed: %v", err)
	}

	tenantSvc := tenant.NewService(tenantRepo)
	usrSvc := user.NewService(usrRepo)
	studentSvc := student.NewService(studentRepo)
	feeSvc := fee.NewService(feeRepo)
	paymentSvc := payment.NewService(payment.ServiceDeps{
		Repo:     paymentRepo,
		Students: studentSvc,
		Fees:     feeSvc,
		Tenants:  tenantSvc,
		Receipts: receipts,
		Notifier: notify.NewDispatcher(mailSvc, smsSvc, logger),
		Logger:   logger,
	})
	engine := reconcile.NewEngine(studentSvc, feeSvc, paymentSvc)

	// set up server
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		TenantSvc:      tenantSvc,
		UserSvc:        usrSvc,
		StudentSvc:     studentSvc,
		FeeSvc:         feeSvc,
		PaymentSvc:     paymentSvc,
		Defaulters:     engine,
		Dashboard:      report.NewDashboard(studentSvc, feeSvc, paymentSvc, engine, conf.Reports.DefaultOverdueDays),
	})
	t.Cleanup(func() { _ = srv.Close() })
	return srv
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

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
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
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	if _, ok := j2.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
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
