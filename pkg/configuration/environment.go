package configuration

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/kwatuha/imes-sub010/pkg/logging"
	"github.com/kwatuha/imes-sub010/pkg/textnorm"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the env files that exist. Relative names are looked up in
// the working directory first and then in the nearest parent holding a
// go.mod, so tests run from package directories see the repository's files.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	root := moduleRoot()
	for _, file := range envFiles {
		if fileExists(file) {
			existing = append(existing, file)
			continue
		}
		if root != "" && !filepath.IsAbs(file) {
			if candidate := filepath.Join(root, file); fileExists(candidate) {
				existing = append(existing, candidate)
			}
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"imes"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type LogOptions struct {
	Path      string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	MaxSizeMB int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type ImportOptions struct {
	DateOrder     string `env:"IMPORT_DATE_ORDER" envDefault:"mdy"`
	PreviewLimit  int    `env:"IMPORT_PREVIEW_LIMIT" envDefault:"10"`
	HeaderMapPath string `env:"IMPORT_HEADER_MAP_PATH"`
	MaxUploadMB   int64  `env:"IMPORT_MAX_UPLOAD_MB" envDefault:"20"`
}

// Validate checks the import options and normalizes the date order.
func (o *ImportOptions) Validate() error {
	order, err := textnorm.ParseDateOrder(o.DateOrder)
	if err != nil {
		return fmt.Errorf("invalid IMPORT_DATE_ORDER: %w", err)
	}
	o.DateOrder = order.String()
	if o.PreviewLimit <= 0 {
		return fmt.Errorf("IMPORT_PREVIEW_LIMIT must be positive, got %d", o.PreviewLimit)
	}
	if o.MaxUploadMB <= 0 {
		return fmt.Errorf("IMPORT_MAX_UPLOAD_MB must be positive, got %d", o.MaxUploadMB)
	}
	if o.HeaderMapPath != "" && !fileExists(o.HeaderMapPath) {
		return fmt.Errorf("IMPORT_HEADER_MAP_PATH %q does not exist", o.HeaderMapPath)
	}
	return nil
}

// Order returns the parsed date order. Call after Validate.
func (o *ImportOptions) Order() textnorm.DateOrder {
	order, _ := textnorm.ParseDateOrder(o.DateOrder)
	return order
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (o *ImportOptions) MaxUploadBytes() int64 {
	return o.MaxUploadMB << 20
}

type Configuration struct {
	Database   DatabaseOptions
	Log        LogOptions
	Prometheus PrometheusOptions
	Import     ImportOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	// Taken from this header when present, generated otherwise.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	// Header carrying the authenticated user id for confirm requests.
	ActorHeader string `env:"ACTOR_HEADER" envDefault:"X-Actor-ID"`

	logFile io.Closer
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Load parses the environment into a new Configuration without touching the
// singleton. The logger is a console logger.
func Load() (*Configuration, error) {
	c := &Configuration{}
	if err := c.parse(); err != nil {
		return nil, err
	}
	c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	return c, nil
}

func (c *Configuration) parse() error {
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := c.parse(); err != nil {
		return err
	}
	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Log.Path, c.Log.MaxSizeMB)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile == nil {
		return
	}
	if err := c.logFile.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		log.Printf("Failed to close log file: %v", err)
	}
}
