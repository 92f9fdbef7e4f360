package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/kwatuha/imes-sub010/modules/projects"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
	"github.com/kwatuha/imes-sub010/modules/projects/infrastructure/sheetfile"
	"github.com/kwatuha/imes-sub010/modules/projects/services"
	"github.com/kwatuha/imes-sub010/pkg/composables"
	"github.com/kwatuha/imes-sub010/pkg/configuration"
	"github.com/kwatuha/imes-sub010/pkg/eventbus"
)

type session struct {
	conf    *configuration.Configuration
	service *services.ImportService
	logger  *logrus.Logger
	pool    *pgxpool.Pool
}

// newSession loads configuration, applies flag overrides and builds the
// import service. The pool is opened only when withDB is set.
func newSession(ctx context.Context, opts *rootOptions, withDB bool) (*session, error) {
	conf, err := configuration.Load()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	importOpts := conf.Import
	if opts.dateOrder != "" {
		importOpts.DateOrder = opts.dateOrder
	}
	if opts.headerMap != "" {
		importOpts.HeaderMapPath = opts.headerMap
	}
	if err := importOpts.Validate(); err != nil {
		return nil, withCode(exitUsage, err)
	}

	s := &session{conf: conf, logger: conf.Logger()}
	bus := eventbus.NewEventPublisher(s.logger)
	services.NewImportLogObserver(s.logger).Subscribe(bus)
	if s.service, err = projects.NewImportService(importOpts, bus); err != nil {
		return nil, withCode(exitUsage, err)
	}

	if withDB {
		dsn := strings.TrimSpace(opts.databaseURL)
		if dsn == "" {
			dsn = conf.Database.Opts
		}
		s.pool, err = pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, withCode(exitDB, fmt.Errorf("connect: %w", err))
		}
		if err := s.pool.Ping(ctx); err != nil {
			s.pool.Close()
			return nil, withCode(exitDB, fmt.Errorf("ping database: %w", err))
		}
	}
	return s, nil
}

func (s *session) context(ctx context.Context) context.Context {
	ctx = composables.WithLogger(ctx, logrus.NewEntry(s.logger))
	if s.pool != nil {
		ctx = composables.WithPool(ctx, s.pool)
	}
	return ctx
}

func (s *session) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func readSheet(path string) (sheet.RawTable, error) {
	if strings.TrimSpace(path) == "" {
		return sheet.RawTable{}, withCode(exitUsage, fmt.Errorf("--file is required"))
	}
	table, err := sheetfile.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("read %s: %w", path, err)
		if exitCode(classify(err)) == exitValidation {
			return sheet.RawTable{}, withCode(exitValidation, err)
		}
		return sheet.RawTable{}, withCode(exitUsage, err)
	}
	return table, nil
}
