package config

import "time"

// Config provides read-only access to application configuration.
// The app layer reads settings through this interface and never touches
// setting.yaml or the environment directly.
type Config interface {
	// Core settings
	Home() string           // Base directory for local state (FIELDSVC_HOME)
	APIURL() string         // Backend base URL (FIELDSVC_API_URL)
	TimeoutSec() int        // HTTP timeout in seconds (FIELDSVC_TIMEOUT_SEC)
	Timeout() time.Duration // HTTP timeout as Duration

	// Geolocation
	GeoCommand() string        // Location command; empty disables GPS (FIELDSVC_GEO_COMMAND)
	GeoTimeout() time.Duration // Location acquisition timeout (FIELDSVC_GEO_TIMEOUT_SEC)

	// Photo evidence
	PhotoMaxDimension() int // Longest side after downscale, in pixels
	PhotoQuality() int      // JPEG quality 1-100

	// Evidence archive
	StorageType() string // "none", "local" or "s3"
	StorageDir() string  // Local archive directory
	S3Bucket() string
	S3Prefix() string
	S3Region() string

	// Presentation and logging
	TimeZone() *time.Location // Zone used to format dates
	StderrLevel() string      // Stderr log level (FIELDSVC_STDERR_LEVEL)
	OutputFormat() string     // "text" or "json"

	// Metadata
	ConfigSource() string // Source of configuration: "yaml", "env" or "default"
	SettingPath() string  // Path to setting.yaml if loaded from file
}

// AppConfig is the concrete implementation of Config.
type AppConfig struct {
	home       string
	apiURL     string
	timeoutSec int

	geoCommand    string
	geoTimeoutSec int

	photoMaxDimension int
	photoQuality      int

	storageType string
	storageDir  string
	s3Bucket    string
	s3Prefix    string
	s3Region    string

	timeZone     *time.Location
	stderrLevel  string
	outputFormat string

	configSource string
	settingPath  string
}

// Home returns the base directory for local state
func (c *AppConfig) Home() string {
	return c.home
}

// APIURL returns the backend base URL
func (c *AppConfig) APIURL() string {
	return c.apiURL
}

// TimeoutSec returns the HTTP timeout in seconds
func (c *AppConfig) TimeoutSec() int {
	return c.timeoutSec
}

// Timeout returns the HTTP timeout as a Duration
func (c *AppConfig) Timeout() time.Duration {
	return time.Duration(c.timeoutSec) * time.Second
}

// GeoCommand returns the location command
func (c *AppConfig) GeoCommand() string {
	return c.geoCommand
}

// GeoTimeout returns the location acquisition timeout
func (c *AppConfig) GeoTimeout() time.Duration {
	return time.Duration(c.geoTimeoutSec) * time.Second
}

func (c *AppConfig) PhotoMaxDimension() int {
	return c.photoMaxDimension
}

func (c *AppConfig) PhotoQuality() int {
	return c.photoQuality
}

func (c *AppConfig) StorageType() string {
	return c.storageType
}

func (c *AppConfig) StorageDir() string {
	return c.storageDir
}

func (c *AppConfig) S3Bucket() string {
	return c.s3Bucket
}

func (c *AppConfig) S3Prefix() string {
	return c.s3Prefix
}

func (c *AppConfig) S3Region() string {
	return c.s3Region
}

// TimeZone returns the zone used to format dates, never nil
func (c *AppConfig) TimeZone() *time.Location {
	if c.timeZone == nil {
		return time.Local
	}
	return c.timeZone
}

// StderrLevel returns the stderr log level
func (c *AppConfig) StderrLevel() string {
	return c.stderrLevel
}

// OutputFormat returns the presenter format
func (c *AppConfig) OutputFormat() string {
	return c.outputFormat
}

// ConfigSource returns where the configuration was loaded from
func (c *AppConfig) ConfigSource() string {
	return c.configSource
}

// SettingPath returns the path to setting.yaml if loaded from file
func (c *AppConfig) SettingPath() string {
	return c.settingPath
}

// Params carries the resolved values used to build an AppConfig
type Params struct {
	Home              string
	APIURL            string
	TimeoutSec        int
	GeoCommand        string
	GeoTimeoutSec     int
	PhotoMaxDimension int
	PhotoQuality      int
	StorageType       string
	StorageDir        string
	S3Bucket          string
	S3Prefix          string
	S3Region          string
	TimeZone          *time.Location
	StderrLevel       string
	OutputFormat      string
	ConfigSource      string
	SettingPath       string
}

// NewAppConfig creates a new AppConfig with the given values
func NewAppConfig(p Params) *AppConfig {
	return &AppConfig{
		home:              p.Home,
		apiURL:            p.APIURL,
		timeoutSec:        p.TimeoutSec,
		geoCommand:        p.GeoCommand,
		geoTimeoutSec:     p.GeoTimeoutSec,
		photoMaxDimension: p.PhotoMaxDimension,
		photoQuality:      p.PhotoQuality,
		storageType:       p.StorageType,
		storageDir:        p.StorageDir,
		s3Bucket:          p.S3Bucket,
		s3Prefix:          p.S3Prefix,
		s3Region:          p.S3Region,
		timeZone:          p.TimeZone,
		stderrLevel:       p.StderrLevel,
		outputFormat:      p.OutputFormat,
		configSource:      p.ConfigSource,
		settingPath:       p.SettingPath,
	}
}
