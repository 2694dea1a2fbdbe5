package main

import (
	"os"

	"github.com/frankli0324/go-http-client/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
