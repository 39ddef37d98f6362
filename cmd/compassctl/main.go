package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd, cli := newRootCommand()
	err := rootCmd.Execute()
	if cerr := cli.close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error closing tracker: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
