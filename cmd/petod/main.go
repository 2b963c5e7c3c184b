package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/HornetGeek/petow-frontend-sub000/internal/daemon"
	"github.com/HornetGeek/petow-frontend-sub000/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	feedFlag := flag.String("feed", "", "feed id of the room to open at startup")
	socketFlag := flag.String("socket", "", "gRPC socket path (defaults to the profile's socket)")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			Profile:    name,
			SocketPath: *socketFlag,
			FeedID:     *feedFlag,
		}),
	)

	app.Run()
}
