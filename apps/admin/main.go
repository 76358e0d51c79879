package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/services/events"
	"github.com/trezcool/campus/services/logger"
	"github.com/trezcool/campus/storage"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up records
	records, err := storage.Open(context.Background(), conf, logger)
	errAndDie(logger, err)

	// set up services
	core.ParseEmailTemplates(conf, logger)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	var publisher core.EventPublisher
	var pub *eventsvc.AMQPPublisher
	if conf.AMQP.URL != "" {
		pub, err = eventsvc.NewAMQPPublisher(conf, logger)
		errAndDie(logger, err)
		publisher = pub
	}

	// start CLI
	cli := commandLine{
		out:        os.Stdout,
		studentSvc: student.NewService(records.Students),
		feeSvc:     fee.NewService(conf, records.Fees, records.Students, mailSvc, publisher),
	}
	code := 0
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		code = 1
	}
	if w, ok := mailSvc.(waiter); ok {
		w.Wait()
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			logger.Error(fmt.Sprintf("closing broker connection: %v", err), err)
		}
	}
	if err := records.Close(); err != nil {
		logger.Error(fmt.Sprintf("closing records: %v", err), err)
	}
	os.Exit(code)
}

// waiter is implemented by email services sending in the background.
type waiter interface {
	Wait()
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
