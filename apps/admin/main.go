package main

import (
	"log"
	"os"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/fee"
	"github.com/trezcool/ada/core/notify"
	"github.com/trezcool/ada/core/payment"
	"github.com/trezcool/ada/core/reconcile"
	"github.com/trezcool/ada/core/reminder"
	"github.com/trezcool/ada/core/student"
	"github.com/trezcool/ada/core/tenant"
	"github.com/trezcool/ada/core/user"
	appfs "github.com/trezcool/ada/fs"
	emailsvc "github.com/trezcool/ada/services/email"
	logsvc "github.com/trezcool/ada/services/logger"
	smssvc "github.com/trezcool/ada/services/sms"
	"github.com/trezcool/ada/storage/database"
	"github.com/trezcool/ada/storage/database/sqlxrepos"
)

var logger *logsvc.RollbarLogger

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// set up services
	var (
		mailSvc core.EmailService
		smsSvc  core.SMSService
	)
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
		smsSvc = smssvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
		smsSvc = smssvc.NewTwilioService(conf)
	}
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	tenantSvc := tenant.NewService(sqlxrepos.NewTenantRepository(db))
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db))
	feeSvc := fee.NewService(sqlxrepos.NewFeeRepository(db))
	// payments are only read from here: no receipts nor notifications
	paymentSvc := payment.NewService(payment.ServiceDeps{
		Repo:     sqlxrepos.NewPaymentRepository(db),
		Students: studentSvc,
		Fees:     feeSvc,
		Tenants:  tenantSvc,
		Logger:   logger,
	})
	engine := reconcile.NewEngine(studentSvc, feeSvc, paymentSvc)

	// start CLI
	cli := commandLine{
		db:        db,
		tenantSvc: tenantSvc,
		usrSvc:    user.NewService(sqlxrepos.NewUserRepository(db)),
		reminders: reminder.NewJob(reminder.JobDeps{
			Tenants:      tenantSvc,
			Students:     studentSvc,
			Installments: engine,
			Notifier:     notify.NewDispatcher(mailSvc, smsSvc, logger),
			Logger:       logger,
			DaysBefore:   conf.Reminders.DaysBefore,
		}),
		defaulters:  engine,
		overdueDays: conf.Reports.DefaultOverdueDays,
		out:         os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: " + err.Error())
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
