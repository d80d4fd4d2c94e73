package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/relocator/cmd/relocator"
	"github.com/arthur-debert/relocator/internal/version"
)

// Writes relocator.1 to stdout, or one page per command into -dir
func main() {
	dir := flag.String("dir", "", "write one man page per command into this directory")
	flag.Parse()

	rootCmd := relocator.NewRootCmd()
	header := &doc.GenManHeader{
		Title:   "RELOCATOR",
		Section: "1",
		Source:  "relocator " + version.Version,
		Manual:  "relocator manual",
	}

	var err error
	if *dir != "" {
		if err = os.MkdirAll(*dir, 0o755); err == nil {
			err = doc.GenManTree(rootCmd, header, *dir)
		}
	} else {
		err = doc.GenMan(rootCmd, header, os.Stdout)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
