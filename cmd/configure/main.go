package main

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/crux-journal/cmd/configure/commands"
)

func main() {
	if err := commands.NewRootCmd(commands.Options{}).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
