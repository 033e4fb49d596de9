package version

// Current is the semantic version reported by the CLI and /api/version.
const Current = "0.1.0"
