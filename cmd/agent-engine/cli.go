// Package main defines the CLI structure using kong.
package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Run         RunCmd         `cmd:"" help:"Run a single agent task"`
	Orchestrate OrchestrateCmd `cmd:"" help:"Run an orchestration plan of sub-agents"`
	Selftest    SelftestCmd    `cmd:"" help:"Run a scripted end-to-end scenario offline"`
	Version     VersionCmd     `cmd:"" help:"Show version information"`
}

// Globals are flags shared by every command.
type Globals struct {
	Config  string `help:"Config file path (default: ./engine.toml)"`
	Verbose bool   `short:"v" help:"Enable debug logging"`
}

// RunCmd executes one agent task.
type RunCmd struct {
	Task     string `arg:"" help:"Task for the agent"`
	MaxSteps int    `help:"Step cap (overrides config)"`
	Script   string `help:"Scripted responses file (one response per '---' block); enables the mock provider"`
	Session  string `help:"Directory to persist the session event log"`
	NoTools  bool   `help:"Run without the builtin tool catalog"`
}

// OrchestrateCmd runs a plan of sub-agents.
type OrchestrateCmd struct {
	File   string `short:"f" default:"plan.yaml" help:"Orchestration plan path"`
	Script string `help:"Scripted responses file; enables the mock provider"`
}

// SelftestCmd runs a built-in scripted scenario offline.
type SelftestCmd struct{}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
