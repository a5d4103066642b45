package errors

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Configuration (C001-C099)
	"C001": {
		Category: CategoryConfig,
		Message:  "Config file not found",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
	},
	"C003": {
		Category: CategoryConfig,
		Message:  "Invalid scheduler mode",
		Detail:   "The scheduler mode must be \"immediate\" or \"deferred\".",
	},
	"C004": {
		Category: CategoryConfig,
		Message:  "Invalid log level",
		Detail:   "The log level must be one of debug, info, warn or error.",
	},
	"C005": {
		Category: CategoryConfig,
		Message:  "Invalid effect budget",
		Detail:   "The effect budget must be zero (unlimited) or positive.",
	},
	"C006": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
	},

	// CLI (C100-C199)
	"C100": {
		Category: CategoryCLI,
		Message:  "Invalid flag value",
	},
	"C101": {
		Category: CategoryCLI,
		Message:  "Invalid command usage",
		Detail:   "Run with --help to list the commands and flags.",
	},

	// Inspector (C200-C299)
	"C200": {
		Category: CategoryInspector,
		Message:  "Inspector server failed",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
