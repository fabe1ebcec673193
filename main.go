package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"studio-cli/internal/api"
	"studio-cli/internal/config"
	"studio-cli/internal/display"
	"studio-cli/internal/richtext"
	"studio-cli/internal/tui"

	"github.com/charmbracelet/glamour"
)

const version = "0.1.0"

var activeProfile string

func main() {
	args := os.Args[1:]

	// Parse global flags first (--profile)
	args = parseGlobalFlags(args)

	// No args → launch interactive mode (default)
	if len(args) == 0 {
		if err := tui.Run(version, activeProfile); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	// Explicit -i flag also launches interactive mode
	if args[0] == "-i" || args[0] == "--interactive" || args[0] == "interactive" {
		if err := tui.Run(version, activeProfile); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	var err error

	switch args[0] {
	case "ask":
		err = cmdAsk(args[1:])
	case "workflows":
		err = cmdWorkflows(args[1:])
	case "set":
		err = cmdSet(args[1:])
	case "config":
		err = cmdConfig()
	case "profiles":
		err = cmdProfiles()
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("studio %s\n", version)
	default:
		display.Error(fmt.Sprintf("Unknown command: %s", args[0]))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		display.Error(err.Error())
		os.Exit(1)
	}
}

// ─── ask ────────────────────────────────────────────────────────────────────

func cmdAsk(args []string) error {
	var workflowID string
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-w", "--workflow":
			if i+1 < len(args) {
				i++
				workflowID = args[i]
			} else {
				return fmt.Errorf("--workflow requires a value")
			}
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) == 0 {
		fmt.Println("Usage: studio ask <question> [--workflow <id>]")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  studio ask "Summarize yesterday's failed deploys"`)
		fmt.Println(`  studio ask "Check queue depth" --workflow <id>`)
		return nil
	}
	query := strings.Join(positional, " ")

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if workflowID != "" {
		cfg.WorkflowID = workflowID
	}
	if err := cfg.ValidateWorkflow(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	fmt.Printf("\n %s── Agent Studio ──────────────────────────────────────────────────────────%s\n", display.Dim, display.Reset)
	fmt.Println()
	fmt.Printf("    %sQuery:%s     %s\n", display.Dim, display.Reset, query)
	fmt.Printf("    %sWorkflow:%s  %s\n", display.Dim, display.Reset, cfg.WorkflowID)
	fmt.Println()
	fmt.Printf(" %s──────────────────────────────────────────────────────────────────────────%s\n\n", display.Dim, display.Reset)

	// The printer keeps transient frames on one rewriting line and
	// accumulates the answer for a single render at the end.
	var printer display.StreamPrinter

	req := api.StreamRequest{
		Query:            query,
		ChatHistory:      []api.HistoryEntry{},
		RuntimeOverrides: map[string]interface{}{},
	}
	streamErr := client.StreamWorkflow(context.Background(), cfg.WorkflowID, req, printer.HandleFrame)

	answer := strings.TrimSpace(richtext.Unwrap(printer.Finish()))

	if answer != "" {
		rendered, err := glamour.Render(answer, "dark")
		if err != nil {
			// Unrenderable markdown still reads fine as plain text.
			rendered = answer + "\n"
		}
		fmt.Print(rendered)
	}

	fmt.Printf(" %s──────────────────────────────────────────────────────────────────────────%s\n", display.Dim, display.Reset)

	if streamErr != nil {
		return fmt.Errorf("stream error: %w", streamErr)
	}
	if errText := printer.Err(); errText != "" {
		if answer == "" {
			return fmt.Errorf("workflow error: %s", errText)
		}
		display.Warn(fmt.Sprintf("Workflow reported an error after partial output: %s", errText))
		return nil
	}

	display.Success("Done")
	return nil
}

// ─── workflows ──────────────────────────────────────────────────────────────

func cmdWorkflows(args []string) error {
	limit := 50
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-n", "--limit":
			if i+1 < len(args) {
				i++
				n, err := strconv.Atoi(args[i])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid limit: %s", args[i])
				}
				limit = n
			} else {
				return fmt.Errorf("--limit requires a value")
			}
		}
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	workflows, err := client.ListWorkflows(limit)
	if err != nil {
		return fmt.Errorf("listing workflows: %w", err)
	}

	display.Header(fmt.Sprintf("Workflows (%d)", len(workflows)))
	display.SubHeader(cfg.Server)
	fmt.Println()

	if len(workflows) == 0 {
		display.Warn("No workflows found on this server.")
		return nil
	}

	for _, wf := range workflows {
		marker := " "
		if wf.ID == cfg.WorkflowID {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s%s%s  %s  %s\n",
			marker,
			display.Bold, truncate(wf.Name, 40), display.Reset,
			display.Gray+wf.ID+display.Reset,
			display.ActiveLabel(wf.IsActive))
		if wf.Description != "" {
			fmt.Printf("      %s%s%s\n", display.Dim, truncate(wf.Description, 70), display.Reset)
		}
		if wf.UpdatedAt != "" {
			fmt.Printf("      %supdated %s%s\n", display.Dim, display.FormatTime(wf.UpdatedAt), display.Reset)
		}
	}
	fmt.Println()
	fmt.Printf("  %sTip:%s Run %sstudio set workflow <id>%s to pick the chat workflow.\n\n",
		display.Dim, display.Reset, display.Cyan, display.Reset)

	return nil
}

// ─── set ────────────────────────────────────────────────────────────────────

func cmdSet(args []string) error {
	if len(args) < 2 {
		fmt.Println("Usage: studio set <key> <value>")
		fmt.Println()
		fmt.Println("Keys:")
		fmt.Println("  server    Agent Studio server URL  (e.g. http://server:8000)")
		fmt.Println("  token     API authentication token")
		fmt.Println("  workflow  Active workflow ID")
		return nil
	}

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	key, value := args[0], args[1]

	switch key {
	case "server":
		cfg.Server = strings.TrimRight(value, "/")
	case "token":
		cfg.Token = value
	case "workflow":
		cfg.WorkflowID = value
	default:
		return fmt.Errorf("unknown config key: %s (valid: server, token, workflow)", key)
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Success(fmt.Sprintf("%s set to %s", key, value))
	return nil
}

// ─── config ─────────────────────────────────────────────────────────────────

func cmdConfig() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	display.Header("Agent Studio CLI Configuration")

	display.Info("Profile:", config.ProfileName(activeProfile))

	server := cfg.Server
	if server == "" {
		server = display.Dim + "(not set)" + display.Reset
	}
	display.Info("Server:", server)

	workflow := cfg.WorkflowID
	if workflow == "" {
		workflow = display.Dim + "(not set)" + display.Reset
	}
	display.Info("Workflow:", workflow)

	token := display.Dim + "(not set)" + display.Reset
	if cfg.Token != "" {
		end := 12
		if len(cfg.Token) < end {
			end = len(cfg.Token)
		}
		token = cfg.Token[:end] + "..."
	}
	display.Info("Token:", token)
	fmt.Println()

	return nil
}

// ─── profiles ───────────────────────────────────────────────────────────────

func cmdProfiles() error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return err
	}

	display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

	if len(profiles) == 0 {
		display.Warn("No profiles found.")
		return nil
	}

	for _, p := range profiles {
		marker := " "
		if p == config.ProfileName(activeProfile) {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, p)
	}
	fmt.Println()

	return nil
}

// ─── helpers ────────────────────────────────────────────────────────────────

func parseGlobalFlags(args []string) []string {
	var remaining []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--profile" {
			if i+1 < len(args) {
				i++
				activeProfile = args[i]
			}
			continue
		}
		remaining = append(remaining, args[i])
	}
	return remaining
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// ─── usage ──────────────────────────────────────────────────────────────────

func printUsage() {
	fmt.Printf(`%sAgent Studio CLI%s — streaming workflow chat (v%s)

%sUsage:%s
  studio                                            Launch interactive mode (default)
  studio [--profile <name>] <command> [arguments]   Run a specific command

%sGetting Started:%s
  set server <url>          Point at an Agent Studio server
  workflows                 List workflows on the server
  set workflow <id>         Pick the workflow to chat with
  config                    Show current configuration

%sSettings:%s
  set server <url>          Agent Studio server URL
  set token <token>         API authentication token
  set workflow <id>         Active workflow ID

%sChat:%s
  ask "<question>"          Send one query and stream the reply
    -w, --workflow <id>     Override the configured workflow

%sWorkflows:%s
  workflows                 List available workflows
    -n, --limit <count>     Number of workflows to list (default: 50)

%sProfiles:%s
  profiles                    List all config profiles
  --profile <name>            Use a named config profile (default: unnamed)

%sExamples:%s
  studio                                            # Start interactive mode
  studio set server http://studio.internal:8000
  studio workflows
  studio set workflow 66520f61-6a43-48ac-8286-a7e7cf9755c5
  studio ask "Why did last night's batch import fail?"
  studio --profile staging ask "Check queue depth" -w <workflow-id>

`, display.Bold, display.Reset, version,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset)
}
