package main

import "github.com/keepithuman/netconfig-automation/cmd/netconfig/commands"

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, buildTime)
	commands.Execute()
}
