package projects

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
	"github.com/kwatuha/imes-sub010/modules/projects/services"
	"github.com/kwatuha/imes-sub010/pkg/application"
	"github.com/kwatuha/imes-sub010/pkg/configuration"
	"github.com/kwatuha/imes-sub010/pkg/textnorm"
)

func importOptions() configuration.ImportOptions {
	return configuration.ImportOptions{DateOrder: "dmy", PreviewLimit: 5, MaxUploadMB: 1}
}

func TestModule_Register(t *testing.T) {
	app := application.New(&application.ApplicationOptions{Logger: logrus.New()})
	require.NoError(t, app.RegisterModules(NewModule(&ModuleOptions{Import: importOptions()})))

	require.Len(t, app.Migrations(), 1)
	require.Len(t, app.Controllers(), 1)
	require.Equal(t, "/projects/api", app.Controllers()[0].Key())

	svc, ok := app.Service(services.ImportService{}).(*services.ImportService)
	require.True(t, ok)
	require.Equal(t, textnorm.DayFirst, svc.Mapper().DateOrder())
	require.Equal(t, 2, app.EventPublisher().SubscribersCount())

	r := mux.NewRouter()
	app.Controllers()[0].Register(r)
	var paths []string
	require.NoError(t, r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		if tpl, err := route.GetPathTemplate(); err == nil {
			paths = append(paths, tpl)
		}
		return nil
	}))
	require.Contains(t, paths, "/projects/api/confirm-import-data")
}

func TestNewHeaderMapper_HeaderMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "headers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  projectName: [\"Works\"]\n"), 0o644))

	opts := importOptions()
	opts.HeaderMapPath = path
	m, err := NewHeaderMapper(opts)
	require.NoError(t, err)
	field, ok := m.Canonical("Works")
	require.True(t, ok)
	require.Equal(t, sheet.FieldProjectName, field)

	opts.HeaderMapPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewHeaderMapper(opts)
	require.Error(t, err)
}
