package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/campus/apps/api/echo"
	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
	emailsvc "github.com/trezcool/campus/services/email"
	eventsvc "github.com/trezcool/campus/services/events"
	logsvc "github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// RecordsResult splits the opened record source into its repositories.
	RecordsResult struct {
		dig.Out
		Records  *storage.Records
		Students student.Repository
		Fees     fee.Repository
	}

	ServerParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		StudentSvc *student.Service
		FeeSvc     *fee.Service
	}
)

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

func newRecords(conf *core.Config, loggerParam DBLoggerParam) RecordsResult {
	records, err := storage.Open(context.Background(), conf, loggerParam.Logger)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening records: %v", err), err)
	}
	return RecordsResult{
		Records:  records,
		Students: records.Students,
		Fees:     records.Fees,
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newPublisher returns nil when no broker is configured.
func newPublisher(conf *core.Config, logger core.Logger) *eventsvc.AMQPPublisher {
	if conf.AMQP.URL == "" {
		return nil
	}
	pub, err := eventsvc.NewAMQPPublisher(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to broker: %v", err), err)
	}
	return pub
}

func newFeeService(
	conf *core.Config,
	repo fee.Repository,
	students student.Repository,
	mailSvc core.EmailService,
	pub *eventsvc.AMQPPublisher,
) *fee.Service {
	var publisher core.EventPublisher
	if pub != nil {
		publisher = pub
	}
	return fee.NewService(conf, repo, students, mailSvc, publisher)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Validate:   p.Validate,
		Translator: p.Translator,
		StudentSvc: p.StudentSvc,
		FeeSvc:     p.FeeSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRecords))
	must(c.Provide(newEmailService))
	must(c.Provide(newPublisher))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(student.NewService))
	must(c.Provide(newFeeService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
