package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leta-lsp/leta/internal/cliclient"
	"github.com/leta-lsp/leta/internal/config"
)

// callsFlags mirrors internal/dispatcher.CallsParams; cobra owns
// parsing, the dispatcher owns validation, so this command stays a
// thin translation layer between the two.
type callsFlags struct {
	workspaceRoot       string
	mode                string
	fromPath            string
	fromLine            int
	fromColumn          int
	fromSymbol          string
	toPath              string
	toLine              int
	toColumn            int
	toSymbol            string
	maxDepth            int
	includeNonWorkspace bool
	timeout             time.Duration
}

// NewCallsCommand creates the `leta calls` command.
func NewCallsCommand() *cobra.Command {
	flags := &callsFlags{}

	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Ask a call-hierarchy question against the running daemon",
		Long: `Query outgoing calls, incoming calls, or a call path between two
source positions, dispatched through the leta daemon to the
appropriate language server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalls(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.workspaceRoot, "workspace-root", "", "workspace root (defaults to the detected project root of --from-path)")
	f.StringVar(&flags.mode, "mode", "outgoing", "outgoing | incoming | path")
	f.StringVar(&flags.fromPath, "from-path", "", "source file for the starting position")
	f.IntVar(&flags.fromLine, "from-line", 0, "1-based line of the starting position")
	f.IntVar(&flags.fromColumn, "from-column", 0, "0-based column of the starting position")
	f.StringVar(&flags.fromSymbol, "from-symbol", "", "symbol name to report in path-not-found diagnostics")
	f.StringVar(&flags.toPath, "to-path", "", "target file (incoming/path modes)")
	f.IntVar(&flags.toLine, "to-line", 0, "1-based line of the target position (incoming/path modes)")
	f.IntVar(&flags.toColumn, "to-column", 0, "0-based column of the target position")
	f.StringVar(&flags.toSymbol, "to-symbol", "", "symbol name to report in path-not-found diagnostics")
	f.IntVar(&flags.maxDepth, "max-depth", 0, "bound on walker depth (0 uses the daemon's configured default)")
	f.BoolVar(&flags.includeNonWorkspace, "include-non-workspace", false, "include standard-library and vendored edges")
	f.DurationVar(&flags.timeout, "timeout", 60*time.Second, "request timeout")

	return cmd
}

func runCalls(cmd *cobra.Command, flags *callsFlags) error {
	root := flags.workspaceRoot
	if root == "" {
		detected, ok := config.DetectWorkspaceRoot(flags.fromPath)
		if !ok {
			return &exitError{code: exitInternalError, err: fmt.Errorf("--workspace-root not given and no project root detected for %s", flags.fromPath)}
		}
		root = detected
	}

	requestID := uuid.New().String()

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	client, err := cliclient.Dial(ctx, config.SocketPath())
	if err != nil {
		return &exitError{code: exitInternalError, err: fmt.Errorf("is the daemon running? (leta daemon): %w", err)}
	}
	defer client.Close()

	params := map[string]interface{}{
		"request_id":            requestID,
		"workspace_root":        root,
		"mode":                  flags.mode,
		"from_path":             flags.fromPath,
		"from_line":             flags.fromLine,
		"from_column":           flags.fromColumn,
		"from_symbol":           flags.fromSymbol,
		"to_path":               flags.toPath,
		"to_line":               flags.toLine,
		"to_column":             flags.toColumn,
		"to_symbol":             flags.toSymbol,
		"include_non_workspace": flags.includeNonWorkspace,
	}
	if flags.maxDepth > 0 {
		params["max_depth"] = flags.maxDepth
	}

	var result json.RawMessage
	if err := client.Call(ctx, "calls", params, &result); err != nil {
		return &exitError{code: exitInternalError, err: err}
	}

	pretty, err := json.MarshalIndent(json.RawMessage(result), "", "  ")
	if err != nil {
		return &exitError{code: exitInternalError, err: fmt.Errorf("format result: %w", err)}
	}

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s\n", pretty)
	return nil
}
