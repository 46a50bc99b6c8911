package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E199)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file is malformed and could not be decoded.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A required configuration value is not set for the selected mode.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Option not supported in this mode",
		Detail:   "The option only applies to another mode. Remove it or switch modes.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Templated URL matched no files",
		Detail:   "Every templated URL backed by patterns must match at least one file; an empty match set would produce a revision that never changes.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid glob pattern",
		Detail:   "The pattern could not be parsed.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Invalid regular expression",
		Detail:   "The value could not be compiled as a regular expression.",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid option value",
		Detail:   "The option has a value outside its allowed range.",
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Unknown manifest transform",
		Detail:   "The named manifest transform is not registered.",
	},
	"E108": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No precache configuration file was found.",
	},

	// ============================================
	// Collision Errors (E300-E399)
	// ============================================

	"E300": {
		Category: CategoryCollision,
		Message:  "Duplicate manifest URL",
		Detail:   "Two sources produced the same precache URL. Precaching it twice would make the cached revision ambiguous.",
	},
	"E301": {
		Category: CategoryCollision,
		Message:  "Invalid manifest entry",
		Detail:   "Every manifest entry needs a non-empty url and a non-empty revision.",
	},

	// ============================================
	// Placeholder Errors (E400-E499)
	// ============================================

	"E400": {
		Category: CategoryPlaceholder,
		Message:  "Injection point not found",
		Detail:   "The service worker source does not contain the injection point, so there is nothing to inject into.",
	},
	"E401": {
		Category: CategoryPlaceholder,
		Message:  "Multiple injection points",
		Detail:   "The service worker source contains the injection point more than once, so the target is ambiguous.",
	},

	// ============================================
	// IO Errors (E500-E599)
	// ============================================

	"E500": {
		Category: CategoryIO,
		Message:  "File read failed",
		Detail:   "A file could not be read from disk.",
	},
	"E501": {
		Category: CategoryIO,
		Message:  "File write failed",
		Detail:   "The output could not be written.",
	},
	"E502": {
		Category: CategoryIO,
		Message:  "Directory scan failed",
		Detail:   "The glob directory could not be walked.",
	},

	// ============================================
	// Render Errors (E600-E699)
	// ============================================

	"E600": {
		Category: CategoryRender,
		Message:  "Service worker template failed",
		Detail:   "The service worker template could not be parsed or executed.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
