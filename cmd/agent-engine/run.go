package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cognia-ai/agent-engine/internal/agent"
	"github.com/cognia-ai/agent-engine/internal/config"
	"github.com/cognia-ai/agent-engine/internal/llm"
	"github.com/cognia-ai/agent-engine/internal/logging"
	"github.com/cognia-ai/agent-engine/internal/metrics"
	"github.com/cognia-ai/agent-engine/internal/session"
	"github.com/cognia-ai/agent-engine/internal/tools"
	"github.com/cognia-ai/agent-engine/internal/tools/builtin"
)

// timeRound keeps durations readable in summaries.
const timeRound = time.Millisecond

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	nameStyle  = lipgloss.NewStyle().Bold(true)
)

// loadConfig resolves the config file, falling back to defaults when the
// default path does not exist.
func loadConfig(g *Globals) (*config.Config, error) {
	if g.Config != "" {
		return config.LoadFile(g.Config)
	}
	cfg, err := config.LoadFile("engine.toml")
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// newLogger builds the root logger from config and flags.
func newLogger(g *Globals, cfg *config.Config) *logging.Logger {
	logger := logging.New()
	switch {
	case g.Verbose:
		logger.SetLevel(logging.LevelDebug)
	case cfg.Logging.Level != "":
		logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}
	return logger
}

// newCaller builds the model caller. The engine treats model calling as an
// external collaborator; the CLI ships the scripted caller for offline use,
// enabled by a --script file of responses separated by "---" lines.
func newCaller(scriptPath string) (llm.Caller, error) {
	if scriptPath == "" {
		return nil, fmt.Errorf("no model provider configured: pass --script to use the scripted provider, or embed the engine as a library with your own caller")
	}
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var responses []string
	for _, block := range strings.Split(string(data), "\n---\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			responses = append(responses, block)
		}
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("script %s contains no responses", scriptPath)
	}
	return llm.NewMockCaller("").Script(responses...), nil
}

// Run executes one agent task.
func (c *RunCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	caller, err := newCaller(c.Script)
	if err != nil {
		return err
	}
	logger := newLogger(g, cfg)

	catalog := tools.NewRegistry()
	if !c.NoTools {
		if err := builtin.Register(catalog); err != nil {
			return err
		}
	}

	maxSteps := cfg.Agent.MaxSteps
	if c.MaxSteps > 0 {
		maxSteps = c.MaxSteps
	}

	sess := session.New(c.Task)
	var mgr session.Manager = session.NullManager{}
	if c.Session != "" {
		fm, err := session.NewFileManager(c.Session)
		if err != nil {
			return err
		}
		mgr = fm
	}
	collector := metrics.NewCollector()

	result, runErr := agent.Execute(context.Background(), c.Task, agent.Config{
		Caller:         caller,
		Model:          cfg.LLM.Model,
		SystemPrompt:   cfg.Agent.SystemPrompt,
		Temperature:    cfg.Agent.Temperature,
		MaxSteps:       maxSteps,
		Tools:          catalog.Map(),
		Logger:         logger.WithComponent("agent"),
		Session:        sess,
		SessionManager: mgr,
		Metrics:        collector,
		OnToolCall: func(call agent.ToolCall) {
			fmt.Fprintf(os.Stderr, "  %s %s\n", labelStyle.Render("tool:"), call.Name)
		},
	})

	printRunSummary(c.Task, result)
	if c.Session != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("session:"), sess.ID)
	}
	if runErr != nil {
		return runErr
	}
	return nil
}

func printRunSummary(task string, result *agent.Result) {
	status := okStyle.Render("ok")
	if !result.Success {
		status = failStyle.Render("failed")
	}
	fmt.Printf("%s %s\n", nameStyle.Render(task), status)
	fmt.Printf("%s %d steps, %d tokens, %s\n",
		labelStyle.Render("stats:"), result.TotalSteps, result.TokenUsage.Total(), result.Duration.Round(timeRound))
	if result.Error != "" {
		fmt.Printf("%s %s\n", labelStyle.Render("error:"), result.Error)
	}
	if result.FinalResponse != "" {
		fmt.Printf("\n%s\n", result.FinalResponse)
	}
}
