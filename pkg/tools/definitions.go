// Package tools implements the tool dispatcher: a closed registry of
// read-only inspection operations the reasoning service may invoke.
// Every invocation is validated against the tool's declared JSON schema
// before anything runs, and path-bearing operations go through the
// resource accessor and, when needed, the privilege escalation manager.
package tools

import "encoding/json"

// Tool names. The registry is closed: dispatch is an exhaustive switch
// over these constants, and anything else is an unknown tool no matter
// what the reasoning service asks for.
const (
	ToolListProcesses      = "list_processes"
	ToolNetworkConnections = "get_network_connections"
	ToolReadFile           = "read_file"
	ToolListDirectory      = "list_directory"
	ToolFindFiles          = "find_files"
	ToolFileInfo           = "get_file_info"
	ToolStartupItems       = "check_startup_items"
	ToolBrowserExtensions  = "check_browser_extensions"
	ToolScanFile           = "scan_file"
	ToolScanDirectory      = "scan_directory"
	ToolRunCommand         = "run_command"
)

// Definition describes one tool to the reasoning service: its name, what
// it does, and the JSON schema its arguments must satisfy. The same
// schema is compiled for dispatcher-side validation.
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Definitions returns the full registry, in a stable order.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolListProcesses,
			Description: "List running processes with command line, memory usage and executable paths",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"filter": {"type": "string", "description": "Optional case-insensitive substring filter on process names"}
				},
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolNetworkConnections,
			Description: "Snapshot active network connections and their owning processes",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"filter": {"type": "string", "description": "Optional filter on process name or address"}
				},
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolReadFile,
			Description: "Read a file's contents with size limits; binary files return metadata and a SHA-256 hash only",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "Absolute file path to read"},
					"max_size": {"type": "integer", "minimum": 1, "description": "Optional per-read size cap in bytes"}
				},
				"required": ["path"],
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolListDirectory,
			Description: "List the contents of a directory with entry sizes and modification times",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "Directory path to list"},
					"show_hidden": {"type": "boolean", "description": "Include dotfiles (default false)"}
				},
				"required": ["path"],
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolFindFiles,
			Description: "Find files whose names match a glob pattern under a directory",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"pattern": {"type": "string", "description": "Glob pattern, e.g. *.plist"},
					"directory": {"type": "string", "description": "Directory to search (default: user home)"},
					"max_results": {"type": "integer", "minimum": 1, "description": "Result cap (default 50)"}
				},
				"required": ["pattern"],
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolFileInfo,
			Description: "Get file metadata: size, type, timestamps, ownership and SHA-256 hash",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "File path"}
				},
				"required": ["path"],
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolStartupItems,
			Description: "Survey OS startup locations (launch agents/daemons, systemd units, autostart entries)",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolBrowserExtensions,
			Description: "Survey installed browser extensions",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"browser": {"type": "string", "enum": ["chrome", "chromium", "safari", "firefox", "all"], "description": "Browser to check (default all)"}
				},
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolScanFile,
			Description: "Scan a single file with the ClamAV signature engine",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "File path to scan"}
				},
				"required": ["path"],
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolScanDirectory,
			Description: "Recursively scan a directory with the ClamAV signature engine",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"path": {"type": "string", "description": "Directory path to scan"}
				},
				"required": ["path"],
				"additionalProperties": false
			}`),
		},
		{
			Name:        ToolRunCommand,
			Description: "Run one allow-listed read-only diagnostic command; arguments are passed as a discrete list",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"command": {"type": "string", "description": "Command name from the diagnostic allow-list"},
					"args": {"type": "array", "items": {"type": "string"}, "description": "Arguments passed as-is, never through a shell"}
				},
				"required": ["command"],
				"additionalProperties": false
			}`),
		},
	}
}
