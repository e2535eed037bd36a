package main

import (
	"fmt"
	"os"

	docmemcmder "github.com/papercomputeco/docmem/cmd/docmem"
)

func main() {
	cmd := docmemcmder.NewDocmemCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, docmemcmder.Diagnostic(err))
		os.Exit(1)
	}
}
