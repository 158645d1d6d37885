// threes - n-tuple temporal-difference trainer for the Threes tile game
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/threestd/threes/pkg/agent"
	"github.com/threestd/threes/pkg/api"
	"github.com/threestd/threes/pkg/episode"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "train":
		cmdTrain(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`threes - Threes n-tuple TD trainer

Usage: threes <command> [options]

Commands:
  train     Play and learn from a number of episodes
  help      Show this message

Use "threes <command> -h" for command-specific help.

Agent Arguments:
  -play and -env take space separated key=value pairs, for example
  "name=weight alpha=0.01 load=weights.bin save=weights.bin seed=7".
  Keys: name, role, alpha, init, load, save, seed.`)
}

// splitHostPort accepts "host:port" or a bare port number
func splitHostPort(addr string) (string, int, error) {
	if !strings.Contains(addr, ":") {
		addr = "localhost:" + addr
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid monitor address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid monitor port %q", portStr)
	}
	return host, port, nil
}

func startMonitor(ctx context.Context, addr string) (*api.Monitor, <-chan error, error) {
	host, port, err := splitHostPort(addr)
	if err != nil {
		return nil, nil, err
	}
	cfg := api.DefaultConfig()
	cfg.Host = host
	cfg.Port = port

	m := api.NewMonitor(version)
	srv := api.NewServer(m, cfg)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, nil) }()
	return m, done, nil
}

func writeSummaries(path string, summaries []episode.Summary) error {
	data, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summaries: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing summaries: %w", err)
	}
	return nil
}

func cmdTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	total := fs.Int("total", 1000, "Number of training episodes")
	block := fs.Int("block", 100, "Episodes per statistics block")
	playArgs := fs.String("play", "", "Player arguments (key=value ...)")
	envArgs := fs.String("env", "", "Environment arguments (key=value ...)")
	playerKind := fs.String("player", "player", "Player variant: player or dummy")
	monitorAddr := fs.String("monitor", "", "Serve live statistics on host:port (empty = off)")
	summaryPath := fs.String("summary", "", "Write every block summary to this JSON file")
	fs.Parse(args)

	kind, err := agent.ParseKind(*playerKind)
	if err != nil || kind == agent.KindEnvironment {
		fmt.Fprintf(os.Stderr, "Error: -player must be player or dummy, got %q\n", *playerKind)
		os.Exit(1)
	}

	playCfg, err := agent.ParseConfig(*playArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -play: %v\n", err)
		os.Exit(1)
	}
	envCfg, err := agent.ParseConfig(*envArgs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: -env: %v\n", err)
		os.Exit(1)
	}

	player, err := agent.New(kind, playCfg)
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}
	env, err := agent.New(agent.KindEnvironment, envCfg)
	if err != nil {
		log.Fatalf("Failed to create environment: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var monitor *api.Monitor
	var monitorDone <-chan error
	serverCtx, stopServer := context.WithCancel(context.Background())
	defer stopServer()
	if *monitorAddr != "" {
		monitor, monitorDone, err = startMonitor(serverCtx, *monitorAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	log.Printf("Training %s (%s) against %s for %d episodes", player.Name(), player.Kind(), env.Name(), *total)

	var summaries []episode.Summary
	opts := episode.TrainOptions{Total: *total, Block: *block}
	trainErr := episode.Train(ctx, player, env, opts, func(s episode.Summary) {
		fmt.Print(s)
		summaries = append(summaries, s)
		if monitor != nil {
			monitor.Publish(s)
		}
	})
	switch {
	case errors.Is(trainErr, context.Canceled):
		log.Printf("Interrupted after %d blocks", len(summaries))
	case trainErr != nil:
		log.Printf("Training failed: %v", trainErr)
	}

	exitCode := 0
	if trainErr != nil && !errors.Is(trainErr, context.Canceled) {
		exitCode = 1
	}
	if err := player.Close(); err != nil {
		log.Printf("Error: %v", err)
		exitCode = 1
	}
	if err := env.Close(); err != nil {
		log.Printf("Error: %v", err)
		exitCode = 1
	}

	if *summaryPath != "" {
		if err := writeSummaries(*summaryPath, summaries); err != nil {
			log.Printf("Error: %v", err)
			exitCode = 1
		}
	}

	if monitorDone != nil {
		stopServer()
		if err := <-monitorDone; err != nil {
			log.Printf("Monitor error: %v", err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
