package config

import (
	"bytes"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/apex/log"
	"github.com/asaskevich/govalidator"
	"github.com/creasty/defaults"
	"gopkg.in/yaml.v2"
)

// DefaultLocation is set dynamically based on the platform
var DefaultLocation = GetDefaultConfigLocation()

var (
	mu            sync.RWMutex
	_config       *Configuration
	_debugViaFlag bool
)

// Locker specific to writing the configuration to the disk, this happens
// in areas that might already be locked, so we don't want to crash the process.
var _writeLock sync.Mutex

// ApiConfiguration defines the configuration for the HTTP API exposed by the
// daemon.
type ApiConfiguration struct {
	// The interface that the internal webserver should bind to.
	Host string `default:"0.0.0.0" yaml:"host"`

	// The port that the internal webserver should bind to.
	Port int `default:"8080" yaml:"port"`

	// The maximum size for uploaded module files in MiB.
	UploadLimit int64 `default:"100" json:"upload_limit" yaml:"upload_limit"`

	// A list of IP address of proxies that may send a X-Forwarded-For header to set the true clients IP
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`

	Docs DocsConfiguration `json:"docs" yaml:"docs"`

	RateLimit RateLimitConfiguration `json:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfiguration limits the number of requests a single client IP may
// make to the API.
type RateLimitConfiguration struct {
	Enabled bool `default:"true" yaml:"enabled"`

	// Sustained number of requests per second allowed for one client.
	RequestsPerSecond float64 `default:"20" yaml:"requests_per_second"`

	// Number of requests a client may make in a burst above the sustained rate.
	Burst int `default:"40" yaml:"burst"`
}

// DocsConfiguration controls the public API documentation endpoints.
type DocsConfiguration struct {
	// Enabled serves the OpenAPI document and Swagger UI under /api/docs.
	Enabled bool `default:"true" yaml:"enabled"`
}

// SystemConfiguration defines basic system configuration settings.
type SystemConfiguration struct {
	// The root directory where all of the daemon data is stored at.
	RootDirectory string `default:"/var/lib/examination" json:"-" yaml:"root_directory"`

	// Directory where the daemon writes its log file.
	LogDirectory string `default:"/var/log/examination" json:"-" yaml:"log_directory"`

	// Directory where uploaded module files are stored, one sub directory per
	// module.
	Data string `default:"/var/lib/examination/uploads" json:"-" yaml:"data"`

	// UploadSweepInterval is the number of seconds between runs of the job
	// removing uploaded files that are no longer recorded. Set to 0 to disable.
	UploadSweepInterval int `default:"3600" yaml:"upload_sweep_interval"`
}

// DatabaseConfiguration selects and tunes the document store.
type DatabaseConfiguration struct {
	// Driver is one of "sqlite", "bolt" or "memory". The memory driver loses
	// everything on restart and is only meant for local testing.
	Driver string `default:"sqlite" yaml:"driver"`

	// Path of the database file for the sqlite and bolt drivers.
	Path string `default:"/var/lib/examination/examination.db" yaml:"path"`

	// CacheTTL is the number of seconds a document read stays cached in
	// memory. Set to 0 to disable the cache. Only enable it when this daemon
	// is the only writer of the database.
	CacheTTL int `default:"30" yaml:"cache_ttl"`

	// ConflictRetries is how many times a write is retried after another
	// request changed the same document first.
	ConflictRetries uint64 `default:"10" yaml:"conflict_retries"`
}

// MessagingConfiguration controls how module messages are delivered.
type MessagingConfiguration struct {
	// Workers is the number of students notified concurrently when an admin
	// posts a module message.
	Workers int `default:"8" yaml:"workers"`
}

type Configuration struct {
	// The location from which this configuration instance was instantiated.
	path string

	// Determines if the daemon should be running in debug mode. This value is
	// ignored if the debug flag is passed through the command line arguments.
	Debug bool

	AppName string `default:"Examination" json:"app_name" yaml:"app_name"`

	Api       ApiConfiguration       `json:"api" yaml:"api"`
	System    SystemConfiguration    `json:"system" yaml:"system"`
	Database  DatabaseConfiguration  `json:"database" yaml:"database"`
	Messaging MessagingConfiguration `json:"messaging" yaml:"messaging"`
}

// NewAtPath creates a new struct and set the path where it should be stored.
// This function does not modify the currently stored global configuration.
func NewAtPath(path string) (*Configuration, error) {
	var c Configuration
	// Configures the default values for many of the configuration options present
	// in the structs. Values set in the configuration file take priority over the
	// default values.
	if err := defaults.Set(&c); err != nil {
		return nil, err
	}
	applyPlatformDefaults(&c)
	c.path = path
	return &c, nil
}

// Set the global configuration instance. This is a blocking operation such that
// anything trying to set a different configuration value, or read the configuration
// will be paused until it is complete.
func Set(c *Configuration) {
	mu.Lock()
	defer mu.Unlock()
	_config = c
}

// SetDebugViaFlag tracks if the application is running in debug mode because of
// a command line flag argument. If so we do not want to store that configuration
// change to the disk.
func SetDebugViaFlag(d bool) {
	mu.Lock()
	defer mu.Unlock()
	_config.Debug = d
	_debugViaFlag = d
}

// Get returns the global configuration instance. This is a thread-safe operation
// that will block if the configuration is presently being modified.
//
// Be aware that you CANNOT make modifications to the currently stored configuration
// by modifying the struct returned by this function. The only way to make
// modifications is by using the Update() function and passing data through in
// the callback.
func Get() *Configuration {
	mu.RLock()
	c := *_config
	mu.RUnlock()
	return &c
}

// Update performs an in-situ update of the global configuration object using
// a thread-safe mutex lock. This is the correct way to make modifications to
// the global configuration.
func Update(callback func(c *Configuration)) {
	mu.Lock()
	defer mu.Unlock()
	callback(_config)
}

// Path returns the file path where this configuration is stored.
func (c *Configuration) Path() string {
	return c.path
}

// CacheDuration returns the document cache lifetime, zero when caching is off.
func (dc *DatabaseConfiguration) CacheDuration() time.Duration {
	if dc.CacheTTL <= 0 {
		return 0
	}
	return time.Duration(dc.CacheTTL) * time.Second
}

// WriteToDisk writes the configuration to the disk. This is a thread safe operation
// and will only allow one write at a time. Additional calls while writing are
// queued up.
func WriteToDisk(c *Configuration) error {
	_writeLock.Lock()
	defer _writeLock.Unlock()

	ccopy := *c
	// If debugging is set with the flag, don't save that to the configuration file,
	// otherwise you'll always end up in debug mode.
	if _debugViaFlag {
		ccopy.Debug = false
	}
	if c.path == "" {
		return errors.New("cannot write configuration, no path defined in struct")
	}
	b, err := yaml.Marshal(&ccopy)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, b, 0o600); err != nil {
		return err
	}
	return nil
}

// FromFile reads the configuration from the provided file and stores it in the
// global singleton for this instance.
func FromFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	c, err := NewAtPath(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.Wrap(err, "config: failed to parse configuration file")
	}

	for _, p := range []*string{&c.System.RootDirectory, &c.System.LogDirectory, &c.System.Data, &c.Database.Path} {
		if *p, err = Expand(*p); err != nil {
			return err
		}
	}

	if err := c.validate(); err != nil {
		return err
	}

	// Store this configuration in the global state.
	Set(c)
	return nil
}

func (c *Configuration) validate() error {
	switch c.Database.Driver {
	case "sqlite", "bolt", "memory":
	default:
		return errors.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if !govalidator.IsHost(c.Api.Host) {
		return errors.Errorf("config: api.host %q is not a valid host", c.Api.Host)
	}
	if !govalidator.IsPort(strconv.Itoa(c.Api.Port)) {
		return errors.Errorf("config: api.port %d is out of range", c.Api.Port)
	}
	for _, p := range c.Api.TrustedProxies {
		if !govalidator.IsIP(p) && !govalidator.IsCIDR(p) {
			return errors.Errorf("config: trusted proxy %q is neither an IP nor a CIDR", p)
		}
	}
	return nil
}

// ConfigureDirectories ensures that all the system directories exist on the
// system. These directories are created so that only the owner can read the data,
// and no other users.
//
// This function IS NOT thread-safe.
func ConfigureDirectories() error {
	for _, dir := range []string{_config.System.RootDirectory, _config.System.LogDirectory, _config.System.Data} {
		log.WithField("path", dir).Debug("ensuring directory exists")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return errors.Wrapf(err, "config: failed to create %s", dir)
		}
	}
	return nil
}

// Expand expands an input string by calling [os.ExpandEnv] to expand all
// environment variables, then checks if the value is prefixed with `file://`
// to support reading the value from a file.
func Expand(v string) (string, error) {
	v = os.ExpandEnv(v)

	const filePrefix = "file://"
	if strings.HasPrefix(v, filePrefix) {
		p := v[len(filePrefix):]

		b, err := os.ReadFile(p)
		if err != nil {
			return "", errors.Wrapf(err, "config: failed to read %s", p)
		}
		v = string(bytes.TrimRight(bytes.TrimRight(b, "\r"), "\n"))
	}

	return v, nil
}
