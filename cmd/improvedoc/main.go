package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/improvedoc/cmd/improvedoc/cmd"
)

var Version = "dev"

func main() {
	if err := cmd.Execute(Version); err != nil {
		fmt.Fprintln(os.Stderr, "improvedoc:", err)
		os.Exit(1)
	}
}
