// Package storage opens the record source selected by the configuration.
package storage

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
	"github.com/trezcool/campus/storage/database"
	"github.com/trezcool/campus/storage/database/inmem"
	"github.com/trezcool/campus/storage/database/sqlx"
)

// Records gives read access to the school records.
type Records struct {
	Students student.Repository
	Fees     fee.Repository

	close func() error
}

func (r *Records) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Open opens the source named by conf.Records.Source.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (*Records, error) {
	switch conf.Records.Source {
	case core.RecordsPostgres:
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		logger.Info(fmt.Sprintf("reading records from postgres at %s/%s", conf.Database.Address(), conf.Database.Name))
		return &Records{
			Students: sqlxrepos.NewStudentRepository(db),
			Fees:     sqlxrepos.NewFeeRepository(db),
			close:    db.Close,
		}, nil

	case core.RecordsMemory, "":
		db := inmemdb.Open()
		if conf.Records.FixturesDir != "" {
			if err := db.LoadFixtures(conf.Records.FixturesDir); err != nil {
				return nil, errors.Wrap(err, "loading fixtures")
			}
		}
		logger.Info(fmt.Sprintf("reading records from memory (fixtures: %q)", conf.Records.FixturesDir))
		return &Records{
			Students: inmemdb.NewStudentRepository(db),
			Fees:     inmemdb.NewFeeRepository(db),
		}, nil

	default:
		return nil, errors.Errorf("unknown records source %q", conf.Records.Source)
	}
}
