package di

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/afero"

	backendgateway "github.com/fieldsvc/fieldsvc/internal/adapter/gateway/backend"
	"github.com/fieldsvc/fieldsvc/internal/adapter/gateway/geolocation"
	"github.com/fieldsvc/fieldsvc/internal/adapter/gateway/photo"
	storagegateway "github.com/fieldsvc/fieldsvc/internal/adapter/gateway/storage"
	"github.com/fieldsvc/fieldsvc/internal/adapter/presenter"
	"github.com/fieldsvc/fieldsvc/internal/app"
	appconfig "github.com/fieldsvc/fieldsvc/internal/app/config"
	"github.com/fieldsvc/fieldsvc/internal/application/port/input"
	"github.com/fieldsvc/fieldsvc/internal/application/port/output"
	"github.com/fieldsvc/fieldsvc/internal/application/service"
	authusecase "github.com/fieldsvc/fieldsvc/internal/application/usecase/auth"
	engagementusecase "github.com/fieldsvc/fieldsvc/internal/application/usecase/engagement"
	historyusecase "github.com/fieldsvc/fieldsvc/internal/application/usecase/history"
	ordersusecase "github.com/fieldsvc/fieldsvc/internal/application/usecase/orders"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
	"github.com/fieldsvc/fieldsvc/internal/infra/session"
	sqliterepo "github.com/fieldsvc/fieldsvc/internal/infrastructure/persistence/sqlite"
	journalrepo "github.com/fieldsvc/fieldsvc/internal/infrastructure/repository"
)

// Container is the DI container that holds all dependencies
// This implements manual dependency injection for Clean Architecture
type Container struct {
	// Infrastructure Layer - Local state
	db      *sql.DB
	session *session.Session
	cache   repository.EngagementCache
	history repository.HistoryRepository
	journal repository.JournalRepository

	// Infrastructure Layer - Gateways
	backend  *backendgateway.Client
	evidence output.EvidenceStorageGateway
	photos   output.PhotoEncoder
	acquirer *geolocation.Acquirer

	// Application Layer - Services
	guard *service.Guard

	// Application Layer - Use Cases
	lifecycle *engagementusecase.LifecycleManager
	directory *ordersusecase.Directory
	viewer    *historyusecase.Viewer
	auth      *authusecase.UseCase

	// Adapter Layer - Presenters
	presenter output.Presenter

	paths  app.Paths
	config Config
}

// Config holds configuration for the container
type Config struct {
	Settings     appconfig.Config // Loaded settings; required
	Fs           afero.Fs         // Defaults to the OS filesystem
	OutputWriter io.Writer        // Defaults to stdout
	OutputFormat string           // Overrides Settings.OutputFormat when set
	Logger       output.Logger
	HTTPClient   *http.Client   // Replaces the backend's default client
	Locator      output.Locator // Replaces the configured location command
}

// NewContainer creates and initializes the DI container
func NewContainer(ctx context.Context, config Config) (*Container, error) {
	if config.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	c := &Container{
		config: config,
		paths:  app.ResolvePaths(config.Settings.Home()),
	}

	if c.config.Fs == nil {
		c.config.Fs = afero.NewOsFs()
	}
	if c.config.OutputWriter == nil {
		c.config.OutputWriter = os.Stdout
	}
	if c.config.OutputFormat == "" {
		c.config.OutputFormat = config.Settings.OutputFormat()
	}
	if c.config.Logger == nil {
		c.config.Logger = output.NopLogger{}
	}

	// Initialize dependencies in dependency order
	if err := c.initializeInfrastructure(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	c.initializeApplication()
	c.initializeAdapters()

	return c, nil
}

// initializeInfrastructure initializes infrastructure layer components
func (c *Container) initializeInfrastructure(ctx context.Context) error {
	cfg := c.config.Settings

	// 1. Session
	sess, err := session.Open(c.config.Fs, c.paths.Home)
	if err != nil {
		return err
	}
	c.session = sess

	// 2. SQLite cache
	db, err := sqliterepo.Open(c.paths.Database)
	if err != nil {
		return err
	}
	c.db = db
	c.cache = sqliterepo.NewEngagementCache(db)
	c.history = sqliterepo.NewHistoryRepository(db)

	// 3. Action journal
	c.journal = journalrepo.NewJournalRepositoryImpl(c.config.Fs, c.paths.Journal, c.config.Logger)

	// 4. Backend gateway
	opts := []backendgateway.Option{backendgateway.WithLogger(c.config.Logger)}
	if c.config.HTTPClient != nil {
		opts = append(opts, backendgateway.WithHTTPClient(c.config.HTTPClient))
	}
	c.backend = backendgateway.NewClient(cfg.APIURL(), cfg.Timeout(), c.session, opts...)

	// 5. Evidence archive based on configuration
	evidence, err := storagegateway.New(ctx, c.config.Fs, storagegateway.Options{
		Type:     cfg.StorageType(),
		LocalDir: cfg.StorageDir(),
		S3: storagegateway.S3Config{
			BucketName: cfg.S3Bucket(),
			Prefix:     cfg.S3Prefix(),
			Region:     cfg.S3Region(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create evidence storage: %w", err)
	}
	c.evidence = evidence

	// 6. Photo encoder
	c.photos = photo.NewEncoder(c.config.Fs, cfg.PhotoMaxDimension(), cfg.PhotoQuality())

	// 7. Geolocation
	locator := c.config.Locator
	if locator == nil {
		locator, err = newLocator(cfg.GeoCommand())
		if err != nil {
			return err
		}
	}
	c.acquirer = geolocation.NewAcquirer(locator, cfg.GeoTimeout(), c.config.Logger)

	return nil
}

func newLocator(command string) (output.Locator, error) {
	if command == "" {
		return geolocation.DisabledLocator{}, nil
	}
	l, err := geolocation.NewCommandLocator(command)
	if err != nil {
		return nil, fmt.Errorf("invalid geo_command: %w", err)
	}
	return l, nil
}

// initializeApplication initializes application layer components
func (c *Container) initializeApplication() {
	c.guard = service.NewGuard(file.NewProcessLock(c.config.Fs, c.paths.Lock, file.DefaultLockTTL))

	c.lifecycle = engagementusecase.NewLifecycleManager(engagementusecase.Deps{
		Backend:  c.backend,
		Cache:    c.cache,
		Journal:  c.journal,
		Guard:    c.guard,
		Photos:   c.photos,
		Evidence: c.evidence,
		Logger:   c.config.Logger,
	})
	c.directory = ordersusecase.NewDirectory(c.backend, c.lifecycle, c.session)
	c.viewer = historyusecase.NewViewer(c.backend, c.history, c.config.Settings.TimeZone(), c.config.Logger)
	c.auth = authusecase.NewUseCase(c.backend, c.session, c.journal, c.config.Logger)
}

// initializeAdapters initializes adapter layer components
func (c *Container) initializeAdapters() {
	switch c.config.OutputFormat {
	case "json":
		c.presenter = presenter.NewJSONPresenter(c.config.OutputWriter)
	default: // "text"
		c.presenter = presenter.NewCLIPresenter(c.config.OutputWriter)
	}
}

// Paths returns the resolved home layout
func (c *Container) Paths() app.Paths {
	return c.paths
}

// Settings returns the loaded configuration
func (c *Container) Settings() appconfig.Config {
	return c.config.Settings
}

// Fs returns the filesystem used for local state
func (c *Container) Fs() afero.Fs {
	return c.config.Fs
}

// GetSession returns the session store
func (c *Container) GetSession() *session.Session {
	return c.session
}

// GetBackend returns the backend gateway
func (c *Container) GetBackend() output.BackendGateway {
	return c.backend
}

// GetJournal returns the action journal
func (c *Container) GetJournal() repository.JournalRepository {
	return c.journal
}


// GetAcquirer returns the position acquirer
func (c *Container) GetAcquirer() *geolocation.Acquirer {
	return c.acquirer
}

// GetLifecycle returns the engagement lifecycle manager
func (c *Container) GetLifecycle() input.EngagementUseCase {
	return c.lifecycle
}

// GetDirectory returns the order directory
func (c *Container) GetDirectory() input.OrdersUseCase {
	return c.directory
}

// GetViewer returns the history viewer
func (c *Container) GetViewer() *historyusecase.Viewer {
	return c.viewer
}

// GetAuth returns the auth use case
func (c *Container) GetAuth() input.AuthUseCase {
	return c.auth
}

// GetPresenter returns the presenter
func (c *Container) GetPresenter() output.Presenter {
	return c.presenter
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}
