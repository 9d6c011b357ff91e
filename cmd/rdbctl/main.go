package main

import (
	"os"

	"github.com/hatlonely/recordx/cli"
)

func main() {
	os.Exit(cli.Execute())
}
