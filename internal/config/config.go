package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/precache/internal/errors"
)

// ConfigFileNames are the file names Load looks for, in order.
var ConfigFileNames = []string{"precache.json", "precache.yaml", "precache.yml"}

const (
	// DefaultMaximumFileSize is the default size cutoff for precached files.
	DefaultMaximumFileSize int64 = 2097152

	// DefaultHashAlgorithm is the default revision hash.
	DefaultHashAlgorithm = "sha256"
)

// DefaultGlobPatterns covers common web asset extensions.
var DefaultGlobPatterns = []string{
	"**/*.{js,css,html}",
	"**/*.{json,webmanifest}",
	"**/*.{png,jpg,jpeg,gif,svg,webp,ico}",
	"**/*.{woff,woff2}",
}

// DefaultGlobIgnores excludes dependency directories.
var DefaultGlobIgnores = []string{"node_modules/**/*"}

// Config represents a complete precache configuration.
type Config struct {
	// GlobDirectory is the directory the glob patterns are resolved against.
	GlobDirectory string `json:"globDirectory,omitempty" yaml:"globDirectory,omitempty"`

	// GlobPatterns select the files to precache.
	GlobPatterns []string `json:"globPatterns,omitempty" yaml:"globPatterns,omitempty"`

	// GlobIgnores exclude files matched by GlobPatterns.
	GlobIgnores []string `json:"globIgnores,omitempty" yaml:"globIgnores,omitempty"`

	// GlobFollow follows symlinks while matching (default: true).
	GlobFollow *bool `json:"globFollow,omitempty" yaml:"globFollow,omitempty"`

	// GlobStrict fails the build on unreadable directories (default: true).
	GlobStrict *bool `json:"globStrict,omitempty" yaml:"globStrict,omitempty"`

	// MaximumFileSizeToCacheInBytes skips larger files with a warning.
	MaximumFileSizeToCacheInBytes int64 `json:"maximumFileSizeToCacheInBytes,omitempty" yaml:"maximumFileSizeToCacheInBytes,omitempty"`

	// TemplatedURLs maps virtual URLs to their revision source.
	TemplatedURLs TemplatedURLs `json:"templatedUrls,omitempty" yaml:"templatedUrls,omitempty"`

	// ModifyURLPrefix rewrites manifest URL prefixes.
	ModifyURLPrefix PrefixRules `json:"modifyUrlPrefix,omitempty" yaml:"modifyUrlPrefix,omitempty"`

	// DontCacheBustURLsMatching is a regexp for URLs that already embed a version.
	DontCacheBustURLsMatching string `json:"dontCacheBustUrlsMatching,omitempty" yaml:"dontCacheBustUrlsMatching,omitempty"`

	// ManifestTransforms names registered transforms, applied in order.
	ManifestTransforms []string `json:"manifestTransforms,omitempty" yaml:"manifestTransforms,omitempty"`

	// HashAlgorithm selects the revision hash: "sha256" or "md5".
	HashAlgorithm string `json:"hashAlgorithm,omitempty" yaml:"hashAlgorithm,omitempty"`

	// SWDest is where the service worker is written (path or s3://bucket/key).
	SWDest string `json:"swDest,omitempty" yaml:"swDest,omitempty"`

	// SWSrc is the service worker the manifest is injected into.
	SWSrc string `json:"swSrc,omitempty" yaml:"swSrc,omitempty"`

	// SWTemplate replaces the built-in service worker template.
	SWTemplate string `json:"swTemplate,omitempty" yaml:"swTemplate,omitempty"`

	// InjectionPointRegexp overrides the injection point. It needs two
	// capture groups: the text before and after the manifest.
	InjectionPointRegexp string `json:"injectionPointRegexp,omitempty" yaml:"injectionPointRegexp,omitempty"`

	// ImportWorkboxFromCDN loads the runtime library from the CDN (default: true).
	ImportWorkboxFromCDN *bool `json:"importWorkboxFromCDN,omitempty" yaml:"importWorkboxFromCDN,omitempty"`

	// WorkboxLibDir is the URL path of a locally hosted runtime library.
	WorkboxLibDir string `json:"workboxLibDir,omitempty" yaml:"workboxLibDir,omitempty"`

	// ImportScripts are loaded by the worker before anything else.
	ImportScripts []string `json:"importScripts,omitempty" yaml:"importScripts,omitempty"`

	// NavigateFallback is served for navigations that miss the precache.
	NavigateFallback string `json:"navigateFallback,omitempty" yaml:"navigateFallback,omitempty"`

	NavigateFallbackWhitelist []string `json:"navigateFallbackWhitelist,omitempty" yaml:"navigateFallbackWhitelist,omitempty"`
	NavigateFallbackBlacklist []string `json:"navigateFallbackBlacklist,omitempty" yaml:"navigateFallbackBlacklist,omitempty"`

	// CacheID prefixes cache names so several apps can share an origin.
	CacheID string `json:"cacheId,omitempty" yaml:"cacheId,omitempty"`

	SkipWaiting  bool `json:"skipWaiting,omitempty" yaml:"skipWaiting,omitempty"`
	ClientsClaim bool `json:"clientsClaim,omitempty" yaml:"clientsClaim,omitempty"`

	// DirectoryIndex is appended to URLs ending in "/".
	DirectoryIndex string `json:"directoryIndex,omitempty" yaml:"directoryIndex,omitempty"`

	// RuntimeCaching describes routes cached at runtime.
	RuntimeCaching []RuntimeCaching `json:"runtimeCaching,omitempty" yaml:"runtimeCaching,omitempty"`

	// IgnoreURLParametersMatching lists regexps for search params ignored on lookup.
	IgnoreURLParametersMatching []string `json:"ignoreUrlParametersMatching,omitempty" yaml:"ignoreUrlParametersMatching,omitempty"`

	// HandleFetch registers the fetch handlers (default: true).
	HandleFetch *bool `json:"handleFetch,omitempty" yaml:"handleFetch,omitempty"`

	// OfflineGoogleAnalytics enables offline analytics replay.
	OfflineGoogleAnalytics bool `json:"offlineGoogleAnalytics,omitempty" yaml:"offlineGoogleAnalytics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// warnings collects non-fatal problems found while loading.
	warnings []string
}

// RuntimeCaching is one runtime route.
type RuntimeCaching struct {
	// URLPattern is an express-style route or absolute URL.
	URLPattern string `json:"urlPattern,omitempty" yaml:"urlPattern,omitempty"`

	// URLPatternRegexp is a regular expression matched against request URLs.
	URLPatternRegexp string `json:"urlPatternRegexp,omitempty" yaml:"urlPatternRegexp,omitempty"`

	// Handler is the strategy name, e.g. "networkFirst".
	Handler string `json:"handler" yaml:"handler"`

	// Method is the HTTP method (default: GET).
	Method string `json:"method,omitempty" yaml:"method,omitempty"`

	Options *RuntimeCachingOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// RuntimeCachingOptions configures a runtime strategy.
type RuntimeCachingOptions struct {
	CacheName             string             `json:"cacheName,omitempty" yaml:"cacheName,omitempty"`
	NetworkTimeoutSeconds int                `json:"networkTimeoutSeconds,omitempty" yaml:"networkTimeoutSeconds,omitempty"`
	Expiration            *Expiration        `json:"expiration,omitempty" yaml:"expiration,omitempty"`
	CacheableResponse     *CacheableResponse `json:"cacheableResponse,omitempty" yaml:"cacheableResponse,omitempty"`
}

// Expiration limits a runtime cache.
type Expiration struct {
	MaxEntries    int `json:"maxEntries,omitempty" yaml:"maxEntries,omitempty"`
	MaxAgeSeconds int `json:"maxAgeSeconds,omitempty" yaml:"maxAgeSeconds,omitempty"`
}

// CacheableResponse restricts which responses are cached.
type CacheableResponse struct {
	Statuses []int             `json:"statuses,omitempty" yaml:"statuses,omitempty"`
	Headers  map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory.
// It looks for each of ConfigFileNames in the directory.
func Load(dir string) (*Config, error) {
	for _, name := range ConfigFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E108").
		WithPath(dir).
		WithSuggestion("Run 'precache init' to create precache.json, or pass --config")
}

// LoadFile reads configuration from the specified file path. The format is
// chosen by extension: .yaml/.yml is YAML, everything else JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E108").
				WithPath(path).
				WithSuggestion("Run 'precache init' to create precache.json")
		}
		return nil, errors.New("E100").WithPath(path).Wrap(err)
	}

	cfg, err := Parse(data, formatFor(path))
	if err != nil {
		if pe, ok := errors.As(err); ok {
			pe.WithPath(path)
		}
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Format is a config file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes configuration data. Unknown keys are recorded as warnings.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := &Config{}
	var keys []string

	switch format {
	case FormatYAML:
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.New("E100").
				WithDetail("Failed to parse YAML: " + err.Error())
		}
		for k := range raw {
			keys = append(keys, k)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E100").
				WithDetail("Failed to decode configuration: " + err.Error())
		}
	default:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.New("E100").
				WithDetail("Failed to parse JSON: " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
		for k := range raw {
			keys = append(keys, k)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E100").
				WithDetail("Failed to decode configuration: " + err.Error())
		}
	}

	known := knownKeys()
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := known[k]; !ok {
			cfg.warnings = append(cfg.warnings, errors.WarnUnknownOption(k))
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

// knownKeys returns the JSON names of every Config field.
func knownKeys() map[string]struct{} {
	keys := make(map[string]struct{})
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		keys[strings.Split(tag, ",")[0]] = struct{}{}
	}
	return keys
}

// SaveTo writes the configuration to the specified path, as YAML when the
// extension says so and as indented JSON otherwise.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if formatFor(path) == FormatYAML {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(c); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
		// Add newline at end of file
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("E100").WithPath(path).Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E501").WithPath(path).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory relative paths are resolved against: the
// directory of the config file, or the working directory.
func (c *Config) Dir() string {
	if c.configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	}
	dir, err := filepath.Abs(filepath.Dir(c.configPath))
	if err != nil {
		return filepath.Dir(c.configPath)
	}
	return dir
}

// Warnings returns problems found while loading, such as unknown keys.
func (c *Config) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.GlobPatterns == nil {
		c.GlobPatterns = append([]string(nil), DefaultGlobPatterns...)
	}
	if c.GlobIgnores == nil {
		c.GlobIgnores = append([]string(nil), DefaultGlobIgnores...)
	}
	if c.MaximumFileSizeToCacheInBytes == 0 {
		c.MaximumFileSizeToCacheInBytes = DefaultMaximumFileSize
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = DefaultHashAlgorithm
	}
}

// Follow reports whether symlinks are followed while matching.
func (c *Config) Follow() bool {
	return c.GlobFollow == nil || *c.GlobFollow
}

// Strict reports whether unreadable directories fail the build.
func (c *Config) Strict() bool {
	return c.GlobStrict == nil || *c.GlobStrict
}

// UseCDN reports whether the runtime library is imported from the CDN.
func (c *Config) UseCDN() bool {
	return c.ImportWorkboxFromCDN == nil || *c.ImportWorkboxFromCDN
}

// HandlesFetch reports whether the generated worker registers fetch handlers.
func (c *Config) HandlesFetch() bool {
	return c.HandleFetch == nil || *c.HandleFetch
}

// GlobPath returns the absolute path to the glob directory.
func (c *Config) GlobPath() string {
	return c.resolve(c.GlobDirectory)
}

// SourcePath returns the absolute path to swSrc.
func (c *Config) SourcePath() string {
	return c.resolve(c.SWSrc)
}

// TemplatePath returns the absolute path to swTemplate.
func (c *Config) TemplatePath() string {
	return c.resolve(c.SWTemplate)
}

// DestPath returns the absolute path to swDest. Remote destinations such as
// s3://bucket/key are returned unchanged.
func (c *Config) DestPath() string {
	if IsRemote(c.SWDest) {
		return c.SWDest
	}
	return c.resolve(c.SWDest)
}

// IsRemote reports whether dest names a remote object rather than a file.
func IsRemote(dest string) bool {
	return strings.Contains(dest, "://")
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range ConfigFileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing a config file, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E108").
				WithPath(startDir).
				WithSuggestion("Run 'precache init' to create precache.json")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working directory
// or the nearest parent that has one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
