// Command maintctl administers a maintrack database from the shell: schema
// migration, CSV imports, identifier previews and activity retention.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	c := &cli{
		out:    os.Stdout,
		errOut: os.Stderr,
		lookup: os.LookupEnv,
	}
	if err := newRootCommand(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
