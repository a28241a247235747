// Package main provides the kaikki CLI, which loads a kaikki.org wiktextract
// dump into a relational database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
