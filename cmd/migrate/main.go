package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"rig.dev/identity/internal/app"
	"rig.dev/identity/internal/config"
	"rig.dev/identity/internal/migrate"
	"rig.dev/identity/internal/obs"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [up|down|seed|status]")
		flag.PrintDefaults()
	}
	flag.Parse()
	if len(flag.Args()) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	a := app.New(cfg, prometheus.DefaultRegisterer)
	defer a.Close()
	obs.SetBuildInfo(version, commit)

	if err := run(a, flag.Arg(0)); err != nil {
		a.Log.Critical("migrate failed", obs.Fields{"command": flag.Arg(0), "error": err.Error()})
		a.Close()
		os.Exit(1)
	}
}

func run(a *app.App, command string) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.MigrateTimeout)
	defer cancel()

	db, err := a.Conn.DB(ctx)
	if err != nil {
		return err
	}
	mgr := migrate.New(db, migrate.WithLogger(a.Log))

	switch command {
	case "up":
		return mgr.Up(ctx)
	case "down":
		return mgr.Down(ctx)
	case "seed":
		return mgr.Seed(ctx)
	case "status":
		history, err := mgr.Status(ctx)
		if err != nil {
			return err
		}
		for _, item := range history {
			fmt.Println(item)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
