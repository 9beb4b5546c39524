package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	ctx, cmd := newRootCommand()
	err := cmd.Execute()
	ctx.close()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
