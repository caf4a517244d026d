// Command atelier runs a local console session: it assembles the team from
// the config, publishes a requirement, and drives the routing loop until the
// roster goes idle, printing the conversation history at the end.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/atelier-ai/atelier/agent"
	"github.com/atelier-ai/atelier/comms"
	"github.com/atelier-ai/atelier/config"
	"github.com/atelier-ai/atelier/env"
	"github.com/atelier-ai/atelier/internal/version"
	"github.com/atelier-ai/atelier/provider/scripted"
)

func main() {
	var (
		configPath = flag.String("config", "atelier.yaml", "path to config file")
		recipient  = flag.String("to", "", "address the requirement to a named agent (direct chat)")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVer {
		fmt.Printf("atelier %s (%s, built %s)\n", version.Version, version.Commit, version.BuildDate)
		return
	}

	requirement := strings.Join(flag.Args(), " ")
	if requirement == "" {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	e := env.New(logger)
	e.SetAllowBypassTeamLeader(cfg.Team.AllowBypassTeamLeader)
	e.SetHumanIO(consoleHuman{})

	for _, ac := range cfg.Agents {
		id, err := agent.NewIdentity(ac.Name, ac.Profile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "roster: %v\n", err)
			os.Exit(1)
		}
		backend := scripted.New()
		for _, line := range ac.Script {
			backend.Say(line, comms.TagChat)
		}
		if err := e.AddAgent(agent.NewRuntime(id, backend)); err != nil {
			fmt.Fprintf(os.Stderr, "roster: %v\n", err)
			os.Exit(1)
		}
	}

	msg := comms.NewMessage(requirement, comms.RoleUser)
	msg.CauseBy = comms.TagUserRequirement
	opts := env.PublishOptions{}
	if *recipient != "" {
		msg.SendTo = comms.NewSet(*recipient)
		opts.UserDefinedRecipient = *recipient
	}
	e.PublishMessage(msg, opts)

	budget := env.Budget{MaxRounds: cfg.Team.MaxRounds, MaxMessages: cfg.Team.MaxMessages}
	rounds, err := e.Run(context.Background(), budget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("-- session finished after %d round(s), %d message(s) --\n", rounds, e.Published())
	for _, m := range e.History().Get(0) {
		from := m.SentFrom
		if from == "" {
			from = "User"
		}
		fmt.Printf("[%s -> %s] %s\n", from, strings.Join(m.SendTo.Values(), ","), m.Content)
	}
}

// consoleHuman answers AskHuman prompts from stdin.
type consoleHuman struct{}

func (consoleHuman) Ask(_ context.Context, question string) (string, error) {
	fmt.Printf("%s\n> ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `atelier - run a local team session

Usage:
  atelier [flags] <requirement...>

Flags:
`)
	flag.PrintDefaults()
}
