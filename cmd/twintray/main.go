package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/twintray/internal/action"
	"github.com/example/twintray/internal/config"
	"github.com/example/twintray/internal/invoker"
	"github.com/example/twintray/internal/logging"
	"github.com/example/twintray/internal/menu"
	"github.com/example/twintray/internal/notify"
	"github.com/example/twintray/internal/snapshot"
)

func main() {
	log.SetFlags(0)
	secret := config.ResolveSecret()
	if secret == "" {
		log.Fatal("TWINTRAY_SECRET environment variable is required")
	}

	args, debug, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	if debug {
		logging.EnableDebug()
	}

	cfg, err := config.Load(secret)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if len(args) > 0 {
		if err := handleCLI(cfg, secret, args); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := runTray(cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("tray exited with error: %v", err)
	}
}

// runTray wires the fetch, dispatch and poll layers together and blocks until
// the process is signalled.
func runTray(cfg *config.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv := invoker.NewExec(cfg.CommandTimeout())
	fetcher := snapshot.NewFetcher(inv, cfg.ServiceCommand, cfg.NotifierCommand)

	disp := action.NewDispatcher(inv, cfg.ServiceCommand, cfg.ElevateCommand)
	disp.Notifier = notify.New("TwinTray", cfg.Notifications)

	runner := menu.NewRunner(fetcher, disp, cfg.PollInterval())
	disp.Refresh = runner.RequestRefresh
	disp.Source = runner.Snapshot

	log.Printf("TwinTray watching %s every %s", cfg.ServiceCommand, cfg.PollInterval())
	return runner.Start(ctx)
}

// parseGlobalFlags strips the flags that apply to every invocation and
// returns the remaining arguments.
func parseGlobalFlags(args []string) (filtered []string, debug bool, err error) {
	for _, raw := range args {
		normalized := strings.ToLower(strings.TrimLeft(strings.TrimSpace(raw), "-/"))
		switch {
		case normalized == "debug":
			debug = true
		case normalized == "console" || strings.HasPrefix(normalized, "console="):
			// Consumed by the windows console hook.
		default:
			filtered = append(filtered, raw)
		}
	}
	return filtered, debug, nil
}

func handleCLI(cfg *config.Settings, secret string, args []string) error {
	command := strings.ToLower(strings.TrimLeft(args[0], "-/"))
	switch command {
	case "show":
		return handleShow(cfg)
	case "set":
		return handleSet(cfg, secret, args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func handleShow(cfg *config.Settings) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	fmt.Printf("Configuration file: %s\n", path)
	fmt.Printf("%-24s %s\n", "Service command:", cfg.ServiceCommand)
	fmt.Printf("%-24s %s\n", "Notifier command:", cfg.NotifierCommand)
	fmt.Printf("%-24s %s\n", "Elevate command:", cfg.ElevateCommand)
	fmt.Printf("%-24s %s\n", "Poll interval:", cfg.PollInterval())
	fmt.Printf("%-24s %s\n", "Command timeout:", cfg.CommandTimeout())
	fmt.Printf("%-24s %t\n", "Notifications:", cfg.Notifications)
	return nil
}

func handleSet(cfg *config.Settings, secret string, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	service := fs.String("service", cfg.ServiceCommand, "VPN client binary")
	notifier := fs.String("notifier", cfg.NotifierCommand, "resource notifier binary")
	elevate := fs.String("elevate", cfg.ElevateCommand, "elevation helper binary")
	interval := fs.Int("interval", cfg.PollIntervalSeconds, "poll interval in seconds")
	timeout := fs.Int("timeout", cfg.CommandTimeoutSeconds, "command timeout in seconds")
	notifications := fs.Bool("notifications", cfg.Notifications, "show desktop notifications")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interval <= 0 {
		return errors.New("interval must be positive")
	}
	if *timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	cfg.ServiceCommand = *service
	cfg.NotifierCommand = *notifier
	cfg.ElevateCommand = *elevate
	cfg.PollIntervalSeconds = *interval
	cfg.CommandTimeoutSeconds = *timeout
	cfg.Notifications = *notifications

	if err := config.Save(cfg, secret); err != nil {
		return err
	}
	fmt.Println("Configuration saved")
	return nil
}
