package build

// Version is the current version of nodeshubd, reported by the control
// API's /version route and the CLI's version command.
const Version = "0.1.0"
