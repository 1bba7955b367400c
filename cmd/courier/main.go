package main

import (
	"fmt"
	"os"

	"github.com/zulfikawr/courier/cmd/courier/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, commands.FormatError(err))
		os.Exit(1)
	}
}
