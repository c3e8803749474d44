package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/repairdesk/internal/cli"

	_ "github.com/tursodatabase/go-libsql" // registers the "libsql" driver for Turso URLs
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
