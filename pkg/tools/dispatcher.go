package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"autoav/pkg/access"
	"autoav/pkg/config"
	"autoav/pkg/inspect"
	"autoav/pkg/privilege"
	"autoav/pkg/protocol"
	"autoav/pkg/scanner"
)

// Dispatcher validates and executes tool invocations. It recovers every
// failure into a ToolResult: errors are findings for the reasoning
// service to adapt to, not conditions that unwind the loop.
type Dispatcher struct {
	cfg      config.Config
	accessor *access.Accessor
	priv     *privilege.Manager
	scan     *scanner.Scanner
	host     *inspect.Host
	log      zerolog.Logger

	schemas map[string]*gojsonschema.Schema
	allowed map[string]struct{}
}

// NewDispatcher compiles the tool schemas and builds the command
// allow-list index. Schema compilation failure is a programming error in
// the registry and is returned rather than deferred to dispatch time.
func NewDispatcher(cfg config.Config, accessor *access.Accessor, priv *privilege.Manager, scan *scanner.Scanner, host *inspect.Host, log zerolog.Logger) (*Dispatcher, error) {
	schemas := make(map[string]*gojsonschema.Schema)
	for _, def := range Definitions() {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(def.Parameters))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", def.Name, err)
		}
		schemas[def.Name] = s
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedCommands))
	for _, c := range cfg.AllowedCommands {
		allowed[c] = struct{}{}
	}

	return &Dispatcher{
		cfg:      cfg,
		accessor: accessor,
		priv:     priv,
		scan:     scan,
		host:     host,
		log:      log.With().Str("component", "tools").Logger(),
		schemas:  schemas,
		allowed:  allowed,
	}, nil
}

// Execute runs one tool invocation and returns its result envelope.
func (d *Dispatcher) Execute(ctx context.Context, req protocol.ToolRequest) protocol.ToolResult {
	out, err := d.execute(ctx, req)
	if err != nil {
		kind := protocol.KindOf(err)
		d.log.Warn().Str("tool", req.Name).Str("kind", string(kind)).Err(err).Msg("tool failed")
		return protocol.ToolResult{ID: req.ID, Output: "Error: " + err.Error(), OK: false, ErrorKind: kind}
	}
	d.log.Debug().Str("tool", req.Name).Msg("tool succeeded")
	return protocol.ToolResult{ID: req.ID, Output: out, OK: true}
}

// execute validates the request and dispatches it. The switch is
// exhaustive over the registry constants: a name that is not an exact
// match of a declared tool — including case or whitespace variants —
// never reaches an operation.
func (d *Dispatcher) execute(ctx context.Context, req protocol.ToolRequest) (string, error) {
	schema, ok := d.schemas[req.Name]
	if !ok {
		return "", &protocol.UnknownToolError{Name: req.Name}
	}

	args, err := d.validate(req.Name, schema, req.Arguments)
	if err != nil {
		return "", err
	}

	switch req.Name {
	case ToolListProcesses:
		return d.host.ListProcesses(ctx, stringArg(args, "filter"))
	case ToolNetworkConnections:
		return d.host.NetworkConnections(ctx, stringArg(args, "filter"))
	case ToolReadFile:
		return d.readFile(ctx, stringArg(args, "path"), intArg(args, "max_size"))
	case ToolListDirectory:
		return d.listDirectory(ctx, stringArg(args, "path"), boolArg(args, "show_hidden"))
	case ToolFindFiles:
		return d.findFiles(ctx, stringArg(args, "pattern"), stringArg(args, "directory"), int(intArg(args, "max_results")))
	case ToolFileInfo:
		return d.fileInfo(ctx, stringArg(args, "path"))
	case ToolStartupItems:
		return d.host.CheckStartupItems()
	case ToolBrowserExtensions:
		browser := stringArg(args, "browser")
		if browser == "" {
			browser = "all"
		}
		return d.host.CheckBrowserExtensions(browser)
	case ToolScanFile:
		return d.scanPath(ctx, stringArg(args, "path"), false)
	case ToolScanDirectory:
		return d.scanPath(ctx, stringArg(args, "path"), true)
	case ToolRunCommand:
		return d.runCommand(ctx, stringArg(args, "command"), stringSliceArg(args, "args"))
	default:
		// every schema key is handled above; a miss here is a registry bug
		return "", &protocol.UnknownToolError{Name: req.Name}
	}
}

// validate checks raw arguments against the tool's schema and decodes
// them. An absent or empty argument blob means "no arguments".
func (d *Dispatcher) validate(tool string, schema *gojsonschema.Schema, raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || strings.TrimSpace(string(raw)) == "" {
		raw = json.RawMessage("{}")
	}

	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &protocol.InvalidArgumentsError{Tool: tool, Detail: fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}
	if !res.Valid() {
		details := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			details = append(details, e.String())
		}
		return nil, &protocol.InvalidArgumentsError{Tool: tool, Detail: strings.Join(details, "; ")}
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &protocol.InvalidArgumentsError{Tool: tool, Detail: err.Error()}
	}
	return args, nil
}

// --- argument accessors ---
// Schema validation has already established types; these just unwrap.

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int64 {
	if v, ok := args[key].(float64); ok {
		return int64(v)
	}
	return 0
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
