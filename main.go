package main

import (
	"os"

	"vpnbot/cmd"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Errorf("MAIN: %v", err)
		os.Exit(cmd.ExitCode(err))
	}
}
