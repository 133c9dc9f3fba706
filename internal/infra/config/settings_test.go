package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const home = "/home/tech/.fieldsvc"

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		dotenv      string
		env         map[string]string
		wantAPI     string
		wantTimeout int
		wantStorage string
		wantSource  string
	}{
		{
			name:        "Default values only",
			wantAPI:     "http://localhost:8000",
			wantTimeout: 30,
			wantStorage: "none",
			wantSource:  "default",
		},
		{
			name:        "YAML file only",
			yaml:        "api_url: https://fs.example.com/\ntimeout_sec: 45\nstorage_type: local\n",
			wantAPI:     "https://fs.example.com",
			wantTimeout: 45,
			wantStorage: "local",
			wantSource:  "yaml",
		},
		{
			name:        "Environment overrides YAML",
			yaml:        "api_url: https://yaml.example.com\ntimeout_sec: 45\n",
			env:         map[string]string{"FIELDSVC_API_URL": "https://env.example.com", "FIELDSVC_TIMEOUT_SEC": "5"},
			wantAPI:     "https://env.example.com",
			wantTimeout: 5,
			wantStorage: "none",
			wantSource:  "env",
		},
		{
			name:        "Dotenv applies when environment is unset",
			dotenv:      "FIELDSVC_API_URL=https://dotenv.example.com\nFIELDSVC_TIMEOUT_SEC=12\n",
			env:         map[string]string{"FIELDSVC_TIMEOUT_SEC": "7"},
			wantAPI:     "https://dotenv.example.com",
			wantTimeout: 7,
			wantStorage: "none",
			wantSource:  "env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.yaml != "" {
				require.NoError(t, afero.WriteFile(fs, filepath.Join(home, SettingFile), []byte(tt.yaml), 0o644))
			}
			if tt.dotenv != "" {
				require.NoError(t, afero.WriteFile(fs, filepath.Join(home, EnvFile), []byte(tt.dotenv), 0o600))
			}

			cfg, err := LoadSettingsFs(fs, home, envOf(tt.env))
			require.NoError(t, err)

			assert.Equal(t, tt.wantAPI, cfg.APIURL())
			assert.Equal(t, tt.wantTimeout, cfg.TimeoutSec())
			assert.Equal(t, tt.wantStorage, cfg.StorageType())
			assert.Equal(t, tt.wantSource, cfg.ConfigSource())
			assert.Equal(t, home, cfg.Home())
		})
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	cfg, err := LoadSettingsFs(afero.NewMemMapFs(), home, envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.GeoTimeout())
	assert.Equal(t, "", cfg.GeoCommand())
	assert.Equal(t, 1600, cfg.PhotoMaxDimension())
	assert.Equal(t, 80, cfg.PhotoQuality())
	assert.Equal(t, filepath.Join(home, "evidence"), cfg.StorageDir())
	assert.Equal(t, "warn", cfg.StderrLevel())
	assert.Equal(t, "text", cfg.OutputFormat())
	assert.NotNil(t, cfg.TimeZone())
	assert.Empty(t, cfg.SettingPath())
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "api_url: [unclosed"},
		{"non-positive timeout", "timeout_sec: 0"},
		{"bad quality", "photo_quality: 101"},
		{"unknown storage", "storage_type: ftp"},
		{"s3 without bucket", "storage_type: s3"},
		{"unknown format", "output_format: xml"},
		{"bad zone", "time_zone: Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, filepath.Join(home, SettingFile), []byte(tt.yaml), 0o644))
			_, err := LoadSettingsFs(fs, home, envOf(nil))
			assert.Error(t, err)
		})
	}
}

func TestCreateDefaultSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, filepath.Join(home, SettingFile), CreateDefaultSettings(home), 0o644))

	cfg, err := LoadSettingsFs(fs, home, envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.ConfigSource())
	assert.Equal(t, "http://localhost:8000", cfg.APIURL())
}
