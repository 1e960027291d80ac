package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/ada/apps/api/echo"
	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/notify"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/receipt"
	"github.com/trezcool/ada/core/reconcile"
	"github.com/trezcool/ada/core/reminder"
	"github.com/trezcool/ada/core/report"
	"github.com/trezcool/ada/core/student"
	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
	appfs "github.com/trezcool/ada/fs"
	emailsvc "github.com/trezcool/ada/services/email"
	logsvc "github.com/trezcool/ada/services/logger"
	"github.com/trezcool/ada/services/objstore"
	pdfsvc "github.com/trezcool/ada/services/pdf"
	smssvc "github.com/trezcool/ada/services/sms"
	"github.com/trezcool/ada/storage/database"
	"github.com/trezcool/ada/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// CloseRenderer releases the receipt renderer (the headless browser, if any).
type CloseRenderer func() error

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newSMSService(conf *core.Config) core.SMSService {
	if conf.Debug || conf.Twilio.AccountSID == "" {
		return smssvc.NewConsoleService(conf)
	}
	return smssvc.NewTwilioService(conf)
}

func newReceiptRenderer(conf *core.Config, logger core.Logger) (receipt.Renderer, CloseRenderer) {
	if conf.Receipts.Renderer == "chromedp" {
		r := pdfsvc.NewChromedpRenderer(logger)
		return r, r.Close
	}
	return receipt.HTMLRenderer{}, func() error { return nil }
}

func newReceiptStore(conf *core.Config) (receipt.Store, error) {
	if conf.Receipts.Store == "s3" {
		// links are derived from the S3 endpoint and bucket
		return objstore.NewS3Store(context.Background(), conf.Receipts.S3, "")
	}
	return objstore.NewLocalStore(conf.Receipts.Dir, conf.Receipts.BaseURL), nil
}

func newReceiptGenerator(renderer receipt.Renderer, store receipt.Store) (payment.ReceiptGenerator, error) {
	return receipt.NewGenerator(appfs.FS, renderer, store)
}

func newPaymentService(
	repo payment.Repository,
	students *student.Service,
	fees *fee.Service,
	tenants *tenant.Service,
	receipts payment.ReceiptGenerator,
	notifier notify.Notifier,
	logger core.Logger,
) *payment.Service {
	return payment.NewService(payment.ServiceDeps{
		Repo:     repo,
		Students: students,
		Fees:     fees,
		Tenants:  tenants,
		Receipts: receipts,
		Notifier: notifier,
		Logger:   logger,
	})
}

// serviceInterfaces exposes the services the engine and the jobs use concretely to the API.
func serviceInterfaces(
	tenants *tenant.Service,
	students *student.Service,
	fees *fee.Service,
	payments *payment.Service,
) (tenant.ServiceInterface, student.ServiceInterface, fee.ServiceInterface, payment.ServiceInterface) {
	return tenants, students, fees, payments
}

func newEngine(students *student.Service, fees *fee.Service, payments *payment.Service) *reconcile.Engine {
	return reconcile.NewEngine(students, fees, payments)
}

func newDashboard(
	conf *core.Config,
	students *student.Service,
	fees *fee.Service,
	payments *payment.Service,
	engine *reconcile.Engine,
) *report.Dashboard {
	return report.NewDashboard(students, fees, payments, engine, conf.Reports.DefaultOverdueDays)
}

func newReminderJob(
	conf *core.Config,
	tenants *tenant.Service,
	students *student.Service,
	engine *reconcile.Engine,
	notifier notify.Notifier,
	logger core.Logger,
) *reminder.Job {
	return reminder.NewJob(reminder.JobDeps{
		Tenants:      tenants,
		Students:     students,
		Installments: engine,
		Notifier:     notifier,
		Logger:       logger,
		DaysBefore:   conf.Reminders.DaysBefore,
	})
}

func newReminderTrigger(conf *core.Config, job *reminder.Job, logger core.Logger) *reminder.Trigger {
	return reminder.NewTrigger(reminder.TriggerConfig{
		Hour:          conf.Reminders.Hour,
		Minute:        conf.Reminders.Minute,
		CheckInterval: conf.Reminders.CheckInterval,
	}, job, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type serverParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	TenantSvc  tenant.ServiceInterface
	UserSvc    user.ServiceInterface
	StudentSvc student.ServiceInterface
	FeeSvc     fee.ServiceInterface
	PaymentSvc payment.ServiceInterface
	Engine     *reconcile.Engine
	Dashboard  *report.Dashboard
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		TenantSvc:  p.TenantSvc,
		UserSvc:    p.UserSvc,
		StudentSvc: p.StudentSvc,
		FeeSvc:     p.FeeSvc,
		PaymentSvc: p.PaymentSvc,
		Defaulters: p.Engine,
		Dashboard:  p.Dashboard,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))

	// external services
	must(c.Provide(newEmailService))
	must(c.Provide(newSMSService))
	must(c.Provide(notify.NewDispatcher, dig.As(new(notify.Notifier))))
	must(c.Provide(newReceiptRenderer))
	must(c.Provide(newReceiptStore))
	must(c.Provide(newReceiptGenerator))

	// repositories
	must(c.Provide(sqlxrepos.NewTenantRepository))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewStudentRepository))
	must(c.Provide(sqlxrepos.NewFeeRepository))
	must(c.Provide(sqlxrepos.NewPaymentRepository))

	// domain services
	must(c.Provide(tenant.NewService))
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(student.NewService))
	must(c.Provide(fee.NewService))
	must(c.Provide(newPaymentService))
	must(c.Provide(serviceInterfaces))
	must(c.Provide(newEngine))
	must(c.Provide(newDashboard))
	must(c.Provide(newReminderJob))
	must(c.Provide(newReminderTrigger))

	// API
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
