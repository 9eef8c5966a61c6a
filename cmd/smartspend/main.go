package main

import (
	"os"

	"smartspend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
