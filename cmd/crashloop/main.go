package main

import (
	"os"

	"github.com/schmitthub/crashloop/internal/crashloop"
)

func main() {
	os.Exit(crashloop.Main())
}
