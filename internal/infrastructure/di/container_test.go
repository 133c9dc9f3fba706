package di

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldsvc/fieldsvc/internal/adapter/gateway/geolocation"
	"github.com/fieldsvc/fieldsvc/internal/adapter/presenter"
	appconfig "github.com/fieldsvc/fieldsvc/internal/app/config"
	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/testutil/fakebackend"
)

func testSettings(home, apiURL, storageType string) *appconfig.AppConfig {
	return appconfig.NewAppConfig(appconfig.Params{
		Home:              home,
		APIURL:            apiURL,
		TimeoutSec:        5,
		GeoTimeoutSec:     1,
		PhotoMaxDimension: 800,
		PhotoQuality:      80,
		StorageType:       storageType,
		StorageDir:        home + "/evidence",
		TimeZone:          time.UTC,
		StderrLevel:       "warn",
		OutputFormat:      "text",
		ConfigSource:      "default",
	})
}

func newTestContainer(t *testing.T, srv *fakebackend.Server, cfg Config) *Container {
	t.Helper()
	if cfg.Settings == nil {
		cfg.Settings = testSettings(t.TempDir(), srv.URL, "none")
	}
	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewContainer_RequiresSettings(t *testing.T) {
	_, err := NewContainer(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNewContainer_UnknownStorage(t *testing.T) {
	_, err := NewContainer(context.Background(), Config{Settings: testSettings(t.TempDir(), "http://localhost:1", "ftp")})
	assert.ErrorContains(t, err, "evidence storage")
}

func TestContainer_WiresComponents(t *testing.T) {
	srv := fakebackend.New()
	t.Cleanup(srv.Close)

	c := newTestContainer(t, srv, Config{})

	assert.NotNil(t, c.GetSession())
	assert.NotNil(t, c.GetBackend())
	assert.NotNil(t, c.GetJournal())
	assert.NotNil(t, c.GetLifecycle())
	assert.NotNil(t, c.GetDirectory())
	assert.NotNil(t, c.GetViewer())
	assert.NotNil(t, c.GetAuth())
	assert.NotNil(t, c.GetAcquirer())
	_, err := c.GetLifecycle().Evidence(context.Background(), 1)
	assert.ErrorIs(t, err, apperr.ErrValidation, "storage_type none disables the archive")
	assert.IsType(t, &presenter.CLIPresenter{}, c.GetPresenter())

	// No geo_command configured: acquisition falls back to zero
	assert.True(t, c.GetAcquirer().AcquireOrZero(context.Background()).IsZero())
}

func TestContainer_OutputFormatAndOverrides(t *testing.T) {
	srv := fakebackend.New()
	t.Cleanup(srv.Close)
	home := t.TempDir()

	c := newTestContainer(t, srv, Config{
		Settings:     testSettings(home, srv.URL, "local"),
		OutputFormat: "json",
		OutputWriter: &bytes.Buffer{},
		Locator:      geolocation.StaticLocator{Coordinates: model.Coordinates{Latitude: -23.5, Longitude: -46.6}},
	})

	assert.IsType(t, &presenter.JSONPresenter{}, c.GetPresenter())
	list, err := c.GetLifecycle().Evidence(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, -23.5, c.GetAcquirer().AcquireOrZero(context.Background()).Latitude)
	assert.Equal(t, home, c.Paths().Home)
}

func TestContainer_EngagementFlow(t *testing.T) {
	srv := fakebackend.New()
	t.Cleanup(srv.Close)
	srv.AddTechnician(3, "ana@example.com", "s3cret")
	srv.AddOrder(fakebackend.Order{ID: 1, Client: "Padaria São João", Address: "Rua A, 10"})

	c := newTestContainer(t, srv, Config{Fs: afero.NewOsFs()})
	ctx := context.Background()

	require.NoError(t, c.GetAuth().Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "s3cret"}))
	assert.Equal(t, int64(3), c.GetSession().TechnicianID())

	view, err := c.GetDirectory().Browse(ctx, false, "")
	require.NoError(t, err)
	require.Len(t, view.Orders, 1)

	started, err := c.GetLifecycle().Start(ctx, dto.StartRequest{OrderID: 1})
	require.NoError(t, err)
	id := started.Engagement.ID()
	assert.Equal(t, model.StageInspection, started.Engagement.Stage())

	_, err = c.GetLifecycle().Advance(ctx, dto.AdvanceRequest{EngagementID: id, Description: "Checked the panel"})
	require.NoError(t, err)

	next, err := c.GetLifecycle().Next(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StageDiagnosis, next.Current)

	// The cached stage survives a reload from the backend
	active, err := c.GetLifecycle().GetActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, model.StageDiagnosis, active.Stage())

	require.NoError(t, c.GetLifecycle().Finalize(ctx, dto.FinalizeRequest{EngagementID: id, Observation: "Done"}))

	history, err := c.GetViewer().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, history.Total)

	records, err := c.GetJournal().Tail(ctx, 10)
	require.NoError(t, err)
	ops := make([]string, 0, len(records))
	for _, r := range records {
		ops = append(ops, r.Operation)
	}
	assert.Equal(t, []string{"login", "start", "advance", "next", "finalize"}, ops)
}
