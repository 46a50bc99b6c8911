package config

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vango-dev/precache/internal/errors"
)

// Mode selects how the manifest is finished.
type Mode int

const (
	// ModeManifest returns the manifest without a script.
	ModeManifest Mode = iota

	// ModeGenerate renders a complete service worker from a template.
	ModeGenerate

	// ModeInject injects the manifest into an existing service worker.
	ModeInject
)

// String returns the mode name used in logs and metrics.
func (m Mode) String() string {
	switch m {
	case ModeGenerate:
		return "generate"
	case ModeInject:
		return "inject"
	default:
		return "manifest"
	}
}

// runtimeHandlers are the strategy names a runtime route may use.
var runtimeHandlers = map[string]struct{}{
	"cacheFirst":           {},
	"cacheOnly":            {},
	"networkFirst":         {},
	"networkOnly":          {},
	"staleWhileRevalidate": {},
}

// renderOnly returns the render-mode options that are set.
func (c *Config) renderOnly() []string {
	var set []string
	add := func(name string, ok bool) {
		if ok {
			set = append(set, name)
		}
	}
	add("importWorkboxFromCDN", c.ImportWorkboxFromCDN != nil)
	add("workboxLibDir", c.WorkboxLibDir != "")
	add("importScripts", len(c.ImportScripts) > 0)
	add("navigateFallback", c.NavigateFallback != "")
	add("navigateFallbackWhitelist", len(c.NavigateFallbackWhitelist) > 0)
	add("navigateFallbackBlacklist", len(c.NavigateFallbackBlacklist) > 0)
	add("cacheId", c.CacheID != "")
	add("skipWaiting", c.SkipWaiting)
	add("clientsClaim", c.ClientsClaim)
	add("directoryIndex", c.DirectoryIndex != "")
	add("runtimeCaching", len(c.RuntimeCaching) > 0)
	add("ignoreUrlParametersMatching", len(c.IgnoreURLParametersMatching) > 0)
	add("handleFetch", c.HandleFetch != nil)
	add("offlineGoogleAnalytics", c.OfflineGoogleAnalytics)
	add("swTemplate", c.SWTemplate != "")
	return set
}

// injectOnly returns the injection-mode options that are set.
func (c *Config) injectOnly() []string {
	var set []string
	if c.SWSrc != "" {
		set = append(set, "swSrc")
	}
	if c.InjectionPointRegexp != "" {
		set = append(set, "injectionPointRegexp")
	}
	return set
}

// Validate checks the configuration for the given mode. It performs no file
// I/O, so configuration mistakes surface before any file is read.
func (c *Config) Validate(mode Mode) error {
	if c.GlobDirectory == "" {
		return errors.New("E101").
			WithOption("globDirectory").
			WithSuggestion("Set globDirectory to your build output directory, e.g. \"dist\"")
	}

	switch mode {
	case ModeGenerate:
		if bad := c.injectOnly(); len(bad) > 0 {
			return errors.New("E102").
				WithOption(strings.Join(bad, ", ")).
				WithDetail("These options only apply when injecting into an existing service worker.").
				WithSuggestion("Use 'precache inject' or remove the options")
		}
	case ModeInject:
		if c.SWSrc == "" {
			return errors.New("E101").
				WithOption("swSrc").
				WithSuggestion("Set swSrc to the service worker that contains the injection point")
		}
		if bad := c.renderOnly(); len(bad) > 0 {
			return errors.New("E102").
				WithOption(strings.Join(bad, ", ")).
				WithDetail("These options configure a generated service worker and have no effect when injecting.").
				WithSuggestion("Use 'precache generate' or remove the options")
		}
	}

	if c.MaximumFileSizeToCacheInBytes < 0 {
		return errors.New("E106").
			WithOption("maximumFileSizeToCacheInBytes").
			WithDetail("The size limit must not be negative.")
	}
	switch c.HashAlgorithm {
	case "", "sha256", "md5":
	default:
		return errors.New("E106").
			WithOption("hashAlgorithm").
			WithDetail("Supported hash algorithms are sha256 and md5, got " + c.HashAlgorithm + ".")
	}

	if err := validatePatterns("globPatterns", c.GlobPatterns); err != nil {
		return err
	}
	if err := validatePatterns("globIgnores", c.GlobIgnores); err != nil {
		return err
	}
	for _, t := range c.TemplatedURLs {
		if t.URL == "" {
			return errors.New("E106").
				WithOption("templatedUrls").
				WithDetail("Templated URLs must not be empty.")
		}
		if t.IsLiteral() {
			if t.Version == "" {
				return errors.New("E106").
					WithOption("templatedUrls").
					WithURL(t.URL).
					WithDetail("A literal templated URL revision must not be empty.")
			}
			continue
		}
		if len(t.Patterns) == 0 {
			return errors.New("E103").
				WithOption("templatedUrls").
				WithURL(t.URL).
				WithDetail("The pattern list is empty.")
		}
		if err := validatePatterns("templatedUrls", t.Patterns); err != nil {
			return err
		}
	}
	for _, rule := range c.ModifyURLPrefix {
		if rule.Prefix == "" {
			return errors.New("E106").
				WithOption("modifyUrlPrefix").
				WithDetail("An empty prefix would match every URL.")
		}
	}

	if _, err := c.DontCacheBustRegexp(); err != nil {
		return err
	}
	if _, err := c.InjectionRegexp(); err != nil {
		return err
	}
	if mode == ModeGenerate {
		if err := c.validateRender(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateOutput checks that a destination is configured.
func (c *Config) ValidateOutput() error {
	if c.SWDest == "" {
		return errors.New("E101").
			WithOption("swDest").
			WithSuggestion("Set swDest to the path the service worker is written to")
	}
	return nil
}

func (c *Config) validateRender() error {
	for _, group := range []struct {
		option string
		exprs  []string
	}{
		{"navigateFallbackWhitelist", c.NavigateFallbackWhitelist},
		{"navigateFallbackBlacklist", c.NavigateFallbackBlacklist},
		{"ignoreUrlParametersMatching", c.IgnoreURLParametersMatching},
	} {
		if err := validateJSRegexps(group.option, group.exprs); err != nil {
			return err
		}
	}

	for _, rc := range c.RuntimeCaching {
		if (rc.URLPattern == "") == (rc.URLPatternRegexp == "") {
			return errors.New("E106").
				WithOption("runtimeCaching").
				WithDetail("Each runtime route needs exactly one of urlPattern or urlPatternRegexp.")
		}
		if rc.URLPatternRegexp != "" {
			if err := validateJSRegexp("runtimeCaching", rc.URLPatternRegexp); err != nil {
				return err
			}
		}
		if _, ok := runtimeHandlers[rc.Handler]; !ok {
			return errors.New("E106").
				WithOption("runtimeCaching").
				WithDetail("Unknown handler \"" + rc.Handler + "\". Use cacheFirst, cacheOnly, networkFirst, networkOnly, or staleWhileRevalidate.")
		}
		if rc.Options != nil && rc.Options.NetworkTimeoutSeconds > 0 && rc.Handler != "networkFirst" {
			return errors.New("E106").
				WithOption("runtimeCaching").
				WithDetail("networkTimeoutSeconds is only supported by the networkFirst handler.")
		}
	}
	if !c.UseCDN() && c.WorkboxLibDir == "" {
		return errors.New("E101").
			WithOption("workboxLibDir").
			WithDetail("importWorkboxFromCDN is false, so the runtime library must be hosted locally.")
	}
	return nil
}

// DontCacheBustRegexp compiles dontCacheBustUrlsMatching. It returns nil when
// the option is unset.
func (c *Config) DontCacheBustRegexp() (*regexp.Regexp, error) {
	if c.DontCacheBustURLsMatching == "" {
		return nil, nil
	}
	return compile("dontCacheBustUrlsMatching", c.DontCacheBustURLsMatching)
}

// InjectionRegexp compiles injectionPointRegexp. It returns nil when the
// option is unset.
func (c *Config) InjectionRegexp() (*regexp.Regexp, error) {
	if c.InjectionPointRegexp == "" {
		return nil, nil
	}
	re, err := compile("injectionPointRegexp", c.InjectionPointRegexp)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() != 2 {
		return nil, errors.New("E105").
			WithOption("injectionPointRegexp").
			WithDetail("The expression needs exactly two capture groups: the text before and after the manifest.")
	}
	return re, nil
}

func compile(option, expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.New("E105").WithOption(option).Wrap(err)
	}
	return re, nil
}

func validatePatterns(option string, patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return errors.New("E104").
				WithOption(option).
				WithDetail("Pattern " + p + " is not a valid glob.")
		}
	}
	return nil
}
