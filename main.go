package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ftahirops/smartdash/cmd"
)

func main() {
	err := cmd.Run(os.Args[1:])
	if err == nil {
		return
	}
	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.Err)
		}
		os.Exit(min(exitErr.Code, 255))
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
