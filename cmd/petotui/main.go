package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/HornetGeek/petow-frontend-sub000/internal/profile"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui"
	"github.com/HornetGeek/petow-frontend-sub000/internal/tui/client"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: petotui [--profile <name>] [feed-id]")
		flag.PrintDefaults()
	}
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	feedID := flag.Arg(0)

	socketPath := profile.SocketPath(name)

	// Start a daemon for the profile if none answers.
	if !client.Probe(socketPath) {
		fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", name)
		if err := startDaemon(name); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !client.WaitFor(socketPath, 10*time.Second) {
			fmt.Fprintf(os.Stderr, "daemon did not become ready\n")
			os.Exit(1)
		}
	}

	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	app := tui.NewApp(c, name, feedID)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func startDaemon(name string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	petod := filepath.Join(filepath.Dir(executable), "petod")
	if _, err := os.Stat(petod); err != nil {
		petod = "petod"
	}

	cmd := exec.Command(petod, "--profile", name)
	cmd.Stderr = os.Stderr
	return cmd.Start()
}
