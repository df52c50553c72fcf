// Package main implements the command line tool of the commitment tree.
//
//	go run mod.go --db tree.db insert --data hello
//	go run mod.go --db tree.db end-block
//	go run mod.go --config tct.yaml serve
package main

import (
	"fmt"
	"os"

	"go.dedis.ch/tct/cmd"
)

func main() {
	app := cmd.NewDefaultApp()

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
