package main

import (
	"os"

	"github.com/scan-io-git/sonar-sync/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
