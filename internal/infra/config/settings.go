package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/fieldsvc/fieldsvc/internal/app/config"
)

// SettingFile is the name of the settings file inside the home directory
const SettingFile = "setting.yaml"

// EnvFile is loaded from the home directory before environment overrides
const EnvFile = ".env"

// RawSettings represents the structure of setting.yaml.
// Pointer fields distinguish "unset" from zero values.
type RawSettings struct {
	APIURL     *string `yaml:"api_url"`
	TimeoutSec *int    `yaml:"timeout_sec"`

	GeoCommand    *string `yaml:"geo_command"`
	GeoTimeoutSec *int    `yaml:"geo_timeout_sec"`

	PhotoMaxDimension *int `yaml:"photo_max_dimension"`
	PhotoQuality      *int `yaml:"photo_quality"`

	StorageType *string `yaml:"storage_type"`
	StorageDir  *string `yaml:"storage_dir"`
	S3Bucket    *string `yaml:"s3_bucket"`
	S3Prefix    *string `yaml:"s3_prefix"`
	S3Region    *string `yaml:"s3_region"`

	TimeZone     *string `yaml:"time_zone"`
	StderrLevel  *string `yaml:"stderr_level"`
	OutputFormat *string `yaml:"output_format"`
}

// LoadSettingsFs loads configuration for the given home directory.
// Priority: environment (FIELDSVC_*) > .env > setting.yaml > defaults
func LoadSettingsFs(fs afero.Fs, home string, lookup func(string) (string, bool)) (*config.AppConfig, error) {
	settings := &RawSettings{}
	configSource := "default"
	settingPath := ""

	yamlPath := filepath.Join(home, SettingFile)
	if data, err := afero.ReadFile(fs, yamlPath); err == nil {
		if err := yaml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", yamlPath, err)
		}
		configSource = "yaml"
		settingPath = yamlPath
	}

	dotenv := map[string]string{}
	if data, err := afero.ReadFile(fs, filepath.Join(home, EnvFile)); err == nil {
		parsed, err := godotenv.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", EnvFile, err)
		}
		dotenv = parsed
	}
	get := func(key string) (string, bool) {
		if v, ok := lookup(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}
	if applyEnv(settings, get) {
		configSource = "env"
	}

	applyDefaults(settings, home)

	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	return buildAppConfig(settings, home, configSource, settingPath)
}

// applyEnv overrides settings from FIELDSVC_* variables.
// It reports whether any variable was applied.
func applyEnv(s *RawSettings, get func(string) (string, bool)) bool {
	applied := false
	str := func(key string, dst **string) {
		if v, ok := get(key); ok {
			*dst = &v
			applied = true
		}
	}
	num := func(key string, dst **int) {
		if v, ok := get(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = &n
				applied = true
			}
		}
	}

	str("FIELDSVC_API_URL", &s.APIURL)
	num("FIELDSVC_TIMEOUT_SEC", &s.TimeoutSec)
	str("FIELDSVC_GEO_COMMAND", &s.GeoCommand)
	num("FIELDSVC_GEO_TIMEOUT_SEC", &s.GeoTimeoutSec)
	num("FIELDSVC_PHOTO_MAX_DIMENSION", &s.PhotoMaxDimension)
	num("FIELDSVC_PHOTO_QUALITY", &s.PhotoQuality)
	str("FIELDSVC_STORAGE_TYPE", &s.StorageType)
	str("FIELDSVC_STORAGE_DIR", &s.StorageDir)
	str("FIELDSVC_S3_BUCKET", &s.S3Bucket)
	str("FIELDSVC_S3_PREFIX", &s.S3Prefix)
	str("FIELDSVC_S3_REGION", &s.S3Region)
	str("FIELDSVC_TIME_ZONE", &s.TimeZone)
	str("FIELDSVC_STDERR_LEVEL", &s.StderrLevel)
	str("FIELDSVC_OUTPUT_FORMAT", &s.OutputFormat)
	return applied
}

// applyDefaults fills in default values for any nil fields
func applyDefaults(s *RawSettings, home string) {
	setStr := func(dst **string, v string) {
		if *dst == nil {
			*dst = &v
		}
	}
	setInt := func(dst **int, v int) {
		if *dst == nil {
			*dst = &v
		}
	}

	setStr(&s.APIURL, "http://localhost:8000")
	setInt(&s.TimeoutSec, 30)
	setStr(&s.GeoCommand, "")
	setInt(&s.GeoTimeoutSec, 10)
	setInt(&s.PhotoMaxDimension, 1600)
	setInt(&s.PhotoQuality, 80)
	setStr(&s.StorageType, "none")
	setStr(&s.StorageDir, filepath.Join(home, "evidence"))
	setStr(&s.S3Bucket, "")
	setStr(&s.S3Prefix, "fieldsvc")
	setStr(&s.S3Region, "")
	setStr(&s.TimeZone, "Local")
	setStr(&s.StderrLevel, "warn")
	setStr(&s.OutputFormat, "text")
}

func validateSettings(s *RawSettings) error {
	if *s.TimeoutSec <= 0 {
		return fmt.Errorf("timeout_sec must be positive, got %d", *s.TimeoutSec)
	}
	if *s.GeoTimeoutSec <= 0 {
		return fmt.Errorf("geo_timeout_sec must be positive, got %d", *s.GeoTimeoutSec)
	}
	if *s.PhotoQuality < 1 || *s.PhotoQuality > 100 {
		return fmt.Errorf("photo_quality must be between 1 and 100, got %d", *s.PhotoQuality)
	}
	switch *s.StorageType {
	case "none", "local":
	case "s3":
		if *s.S3Bucket == "" {
			return fmt.Errorf("storage_type s3 requires s3_bucket")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want none, local or s3)", *s.StorageType)
	}
	switch *s.OutputFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown output_format %q (want text or json)", *s.OutputFormat)
	}
	return nil
}

// buildAppConfig converts RawSettings to AppConfig
func buildAppConfig(s *RawSettings, home, configSource, settingPath string) (*config.AppConfig, error) {
	loc, err := time.LoadLocation(*s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time_zone %q: %w", *s.TimeZone, err)
	}
	return config.NewAppConfig(config.Params{
		Home:              home,
		APIURL:            strings.TrimRight(*s.APIURL, "/"),
		TimeoutSec:        *s.TimeoutSec,
		GeoCommand:        *s.GeoCommand,
		GeoTimeoutSec:     *s.GeoTimeoutSec,
		PhotoMaxDimension: *s.PhotoMaxDimension,
		PhotoQuality:      *s.PhotoQuality,
		StorageType:       *s.StorageType,
		StorageDir:        *s.StorageDir,
		S3Bucket:          *s.S3Bucket,
		S3Prefix:          *s.S3Prefix,
		S3Region:          *s.S3Region,
		TimeZone:          loc,
		StderrLevel:       *s.StderrLevel,
		OutputFormat:      *s.OutputFormat,
		ConfigSource:      configSource,
		SettingPath:       settingPath,
	}), nil
}

// CreateDefaultSettings renders a default setting.yaml
func CreateDefaultSettings(home string) []byte {
	settings := &RawSettings{}
	applyDefaults(settings, home)

	data, _ := yaml.Marshal(settings)
	return data
}
