// Command aimphub runs the AIMP hub process: a poll loop that negotiates
// meeting times and finalizes shared documents over plain email (spec §1).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wanqianwin-jpg/aimp/hub"
	"github.com/wanqianwin-jpg/aimp/log"
	"github.com/wanqianwin-jpg/aimp/store"
	"github.com/wanqianwin-jpg/aimp/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "status":
		statusCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: aimphub <run|status> [flags]")
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "aimphub.yaml", "path to the hub configuration file")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.Parse(args)

	log.SetDefaultLevel(log.LevelFromString(*logLevel))

	cfg, err := hub.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to open store", "error", err)
	}
	defer db.Close()

	tr := buildTransport(cfg)

	h, err := hub.New(cfg, tr, db)
	if err != nil {
		log.Fatal("failed to initialize hub", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := h.WatchConfig(ctx); err != nil {
			log.Ctx(ctx).Warn("config watcher stopped", "error", err)
		}
	}()

	log.Ctx(ctx).Info("hub starting", "poll_interval_seconds", cfg.PollIntervalSecond)
	if err := h.Run(ctx); err != nil {
		log.Fatal("hub exited with error", "error", err)
	}
}

func buildTransport(cfg *hub.Config) transport.Transport {
	oauth2 := transport.OAuth2Config{
		ClientID:     cfg.Hub.OAuthClientID,
		ClientSecret: cfg.Hub.OAuthClientSec,
		RefreshToken: cfg.Hub.OAuthRefresh,
	}
	return &transport.SMTPIMAPTransport{
		IMAP: transport.IMAPConfig{
			Server:   cfg.Hub.IMAPServer,
			Port:     cfg.Hub.IMAPPort,
			Email:    cfg.Hub.Email,
			Password: cfg.Hub.Password,
			AuthType: cfg.Hub.AuthType,
			OAuth2:   oauth2,
		},
		SMTP: transport.SMTPConfig{
			Server:      cfg.Hub.SMTPServer,
			Port:        cfg.Hub.SMTPPort,
			Email:       cfg.Hub.Email,
			Password:    cfg.Hub.Password,
			UseSTARTTLS: cfg.Hub.SMTPUseStartTLS,
			HubDomain:   cfg.Hub.Domain,
			AuthType:    cfg.Hub.AuthType,
			OAuth2:      oauth2,
		},
	}
}
