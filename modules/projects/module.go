// Package projects registers the bulk project import: the upload preview,
// the metadata mapping check and the transactional confirm.
package projects

import (
	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
	"github.com/kwatuha/imes-sub010/modules/projects/infrastructure/persistence"
	"github.com/kwatuha/imes-sub010/modules/projects/presentation/controllers"
	"github.com/kwatuha/imes-sub010/modules/projects/services"
	"github.com/kwatuha/imes-sub010/pkg/application"
	"github.com/kwatuha/imes-sub010/pkg/composables"
	"github.com/kwatuha/imes-sub010/pkg/configuration"
	"github.com/kwatuha/imes-sub010/pkg/eventbus"
)

type ModuleOptions struct {
	Import      configuration.ImportOptions
	ActorHeader string
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.RegisterMigrations(persistence.SchemaFS())

	svc, err := NewImportService(m.opts.Import, app.EventPublisher())
	if err != nil {
		return err
	}
	app.RegisterServices(svc)
	services.NewImportLogObserver(app.Logger()).Subscribe(app.EventPublisher())

	app.RegisterControllers(
		controllers.NewImportAPIController(
			app.Service(services.ImportService{}).(*services.ImportService),
			controllers.ImportAPIOptions{
				ActorHeader:    m.opts.ActorHeader,
				MaxUploadBytes: m.opts.Import.MaxUploadBytes(),
			},
		),
	)
	return nil
}

func (m *Module) Name() string {
	return "projects"
}

// NewHeaderMapper builds the header mapper from the built-in dictionary,
// extended by the YAML file at opts.HeaderMapPath when set.
func NewHeaderMapper(opts configuration.ImportOptions) (*sheet.HeaderMapper, error) {
	dict := sheet.DefaultDictionary()
	if opts.HeaderMapPath != "" {
		var err error
		if dict, err = sheet.LoadDictionary(opts.HeaderMapPath, dict); err != nil {
			return nil, err
		}
	}
	return sheet.NewHeaderMapper(dict, opts.Order()), nil
}

// NewImportService wires the import service to the Postgres repositories.
// The pool is taken from the request context.
func NewImportService(opts configuration.ImportOptions, bus eventbus.EventBus) (*services.ImportService, error) {
	mapper, err := NewHeaderMapper(opts)
	if err != nil {
		return nil, err
	}
	return services.NewImportService(
		mapper,
		services.Repositories{
			References:  persistence.NewReferenceRepository(),
			Projects:    persistence.NewProjectRepository(),
			Contractors: persistence.NewContractorRepository(),
			Runs:        persistence.NewImportRunRepository(),
		},
		composables.PgTransactor{},
		bus,
		services.Options{PreviewLimit: opts.PreviewLimit},
	), nil
}
