// ABOUTME: Entry point for the gobi-agent supervisor process
// ABOUTME: Runs one backend agent with heartbeat reporting and clean shutdown

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/JustRK-07/SIP/internal/backend"
	"github.com/JustRK-07/SIP/internal/config"
	"github.com/JustRK-07/SIP/internal/descriptor"
	"github.com/JustRK-07/SIP/internal/runtime"
	"github.com/JustRK-07/SIP/internal/session"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
             _     _                            _
  __ _  ___ | |__ (_)       __ _  __ _  ___ _ _| |_
 / _' |/ _ \| '_ \| |_____ / _' |/ _' |/ _ \ '_ \ _|
| (_| | (_) | |_) | |_____| (_| | (_| |  __/ | | |_
 \__, |\___/|_.__/|_|      \__,_|\__, |\___|_| |_\__|
 |___/                           |___/
`

// getConfigPath returns the path to the agent config file.
// Priority: GOBI_AGENT_CONFIG env var > XDG_CONFIG_HOME/gobi/agent.yaml > ~/.config/gobi/agent.yaml
func getConfigPath() string {
	if envPath := os.Getenv("GOBI_AGENT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "agent.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "gobi", "agent.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: gobi-agent <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  run                 Run the configured agent until interrupted")
		fmt.Println("  agents [--details]  List agents visible to the configured account")
		fmt.Println("  init                Create a new config file interactively")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "run":
		err = runAgent(ctx)
	case "agents":
		err = runAgents(ctx)
	case "init":
		err = runInit()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAgent(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Optional agent descriptor
	var desc *descriptor.Descriptor
	if cfg.Agent.DescriptorPath != "" {
		desc, err = descriptor.Load(cfg.Agent.DescriptorPath)
		if err != nil {
			return fmt.Errorf("loading agent descriptor: %w", err)
		}
	}

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Backend:   %s\n", cfg.Backend.URL)
	green.Print("    ▶ ")
	fmt.Printf("Agent:     %s\n", cfg.Agent.ID)
	green.Print("    ▶ ")
	fmt.Printf("Heartbeat: every %s\n", cfg.Heartbeat.Interval)
	if cfg.Registration.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Local:     %s:%d\n", cfg.Registration.Host, cfg.Registration.Port)
	}

	fmt.Println()

	logger.Info("starting gobi-agent",
		"config", configPath,
		"backend", cfg.Backend.URL,
		"agent_id", cfg.Agent.ID,
	)

	rt := runtime.New(cfg, desc, logger)

	if err := rt.Login(ctx); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	if err := rt.Run(ctx); err != nil {
		return err
	}

	// Final stats
	snap := rt.Shutdown()
	fmt.Println()
	green.Println("  Agent stopped.")
	fmt.Printf("  Uptime:        %s\n", runtime.Uptime(snap))
	fmt.Printf("  Total calls:   %d\n", snap.TotalCalls)
	fmt.Printf("  Successful:    %d\n", snap.SuccessfulCalls)
	fmt.Printf("  Success rate:  %.2f%%\n", snap.SuccessRate)

	return nil
}

// runAgents logs in with the configured credentials and lists the agents the
// account can see. With --details each agent's full record is fetched, four
// at a time.
func runAgents(ctx context.Context) error {
	withDetails := false
	for _, arg := range os.Args[2:] {
		switch arg {
		case "--details", "-d":
			withDetails = true
		default:
			return fmt.Errorf("unknown flag: %s", arg)
		}
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	client := session.NewClient(cfg.Backend.URL, cfg.Backend.RequestTimeout, logger)
	if err := client.Login(ctx, cfg.Credentials.Username, cfg.Credentials.Password); err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}

	api := backend.NewAPI(client, logger)
	agents, err := api.ListAgents(ctx)
	if err != nil {
		return err
	}

	if len(agents) == 0 {
		fmt.Println("No agents found.")
		return nil
	}

	details := make([]*backend.AgentDetail, len(agents))
	if withDetails {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for i, agent := range agents {
			g.Go(func() error {
				detail, err := api.GetAgent(gctx, agent.ID)
				if err != nil {
					return err
				}
				details[i] = detail
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("fetching agent details: %w", err)
		}
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	for i, agent := range agents {
		cyan.Printf("  %s", agent.Name)
		gray.Printf("  (%s)\n", agent.ID)
		statusColor := gray
		if agent.Status == "ACTIVE" {
			statusColor = green
		}
		fmt.Print("    status: ")
		statusColor.Println(agent.Status)

		if detail := details[i]; detail != nil {
			fmt.Printf("    model:  %s\n", detail.Model)
			fmt.Printf("    voice:  %s\n", detail.Voice)
			if detail.Description != "" {
				fmt.Printf("    about:  %s\n", detail.Description)
			}
		}
		fmt.Println()
	}

	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("gobi-agent configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	defaultConfigPath := getConfigPath()

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Backend configuration
	fmt.Println("\n--- Backend Configuration ---")
	backendURL := prompt(reader, "Backend URL", "http://localhost:3000")
	requestTimeout := prompt(reader, "Request timeout", "10s")

	// Agent
	fmt.Println("\n--- Agent Configuration ---")
	agentID := prompt(reader, "Agent ID", "")
	descriptorPath := prompt(reader, "Agent descriptor path (optional)", "")

	// Heartbeat
	fmt.Println("\n--- Heartbeat Configuration ---")
	interval := prompt(reader, "Heartbeat interval", "30s")

	// Local registration
	fmt.Println("\n--- Local Registration ---")
	enableReg := prompt(reader, "Register with the web UI?", "no")
	regEnabled := strings.ToLower(enableReg) == "yes" || strings.ToLower(enableReg) == "y"

	var regHost string
	var regPort string
	if regEnabled {
		regHost = prompt(reader, "Advertised host", "localhost")
		regPort = prompt(reader, "Advertised port", "8089")
	}

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config. Credentials stay out of the file; they expand from the
	// environment at load time.
	var cfg strings.Builder
	cfg.WriteString("# gobi-agent configuration\n")
	cfg.WriteString("# Generated by gobi-agent init\n\n")

	cfg.WriteString("backend:\n")
	cfg.WriteString(fmt.Sprintf("  url: \"%s\"\n", backendURL))
	cfg.WriteString(fmt.Sprintf("  request_timeout: \"%s\"\n", requestTimeout))
	cfg.WriteString("\n")

	cfg.WriteString("credentials:\n")
	cfg.WriteString("  username: \"${GOBI_USERNAME}\"\n")
	cfg.WriteString("  password: \"${GOBI_PASSWORD}\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("agent:\n")
	cfg.WriteString(fmt.Sprintf("  id: \"%s\"\n", agentID))
	if descriptorPath != "" {
		cfg.WriteString(fmt.Sprintf("  descriptor_path: \"%s\"\n", descriptorPath))
	}
	cfg.WriteString("\n")

	cfg.WriteString("heartbeat:\n")
	cfg.WriteString(fmt.Sprintf("  interval: \"%s\"\n", interval))
	cfg.WriteString("\n")

	cfg.WriteString("registration:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", regEnabled))
	if regEnabled {
		cfg.WriteString(fmt.Sprintf("  host: \"%s\"\n", regHost))
		cfg.WriteString(fmt.Sprintf("  port: %s\n", regPort))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nSet credentials in the environment:")
	fmt.Println("  export GOBI_USERNAME=...")
	fmt.Println("  export GOBI_PASSWORD=...")
	fmt.Println("\nThen run the agent:")
	fmt.Printf("  gobi-agent run\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
