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
	// Data Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryData,
		Message:  "Provider data not found",
		Detail:   "The provider data file could not be read. Export cannot start without it.",
	},
	"E101": {
		Category: CategoryData,
		Message:  "Provider data is malformed",
		Detail:   "The provider data file is not a valid JSON array of provider objects.",
	},
	"E102": {
		Category: CategoryData,
		Message:  "Provider data is invalid",
		Detail:   "Every provider needs a positive, unique integer id and a name.",
	},

	// ============================================
	// Export Errors (E110-E139)
	// ============================================

	"E110": {
		Category: CategoryExport,
		Message:  "Shell document not found",
		Detail:   "The prerendered app shell (index.html) is copied to every exported path. Build the client first.",
	},
	"E130": {
		Category: CategoryExport,
		Message:  "Failed to write export output",
		Detail:   "A directory or file in the output tree could not be created.",
	},
	"E131": {
		Category: CategoryExport,
		Message:  "Exported path does not resolve to its resource",
		Detail:   "A path written by the exporter classifies to a different resource at runtime. Static and client routing would disagree.",
	},
	"E132": {
		Category: CategoryExport,
		Message:  "Provider slug collisions",
		Detail:   "One or more providers could not receive a short URL because the slug was already taken. They remain reachable through their /provider/<id>/<slug> path.",
	},

	// ============================================
	// Config Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "plowfinder.json could not be read or parsed.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No plowfinder.json was found at the given path.",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or malformed.",
	},

	// ============================================
	// Publish Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryPublish,
		Message:  "Publish failed",
		Detail:   "Uploading the export tree to object storage failed.",
	},
	"E141": {
		Category: CategoryPublish,
		Message:  "Nothing to publish",
		Detail:   "The export directory is missing or empty. Run 'plowfinder export' first.",
	},
}

