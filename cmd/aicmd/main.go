package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/doeshing/aicmd-go/internal/infrastructure/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	opts := cli.Options{Verbose: isVerbose()}

	root, closeFn := cli.NewRootCmd(opts)
	err := root.ExecuteContext(ctx)
	stop()
	if cerr := closeFn(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func isVerbose() bool {
	return strings.EqualFold(os.Getenv("AICMD_DEBUG"), "1") || strings.EqualFold(os.Getenv("AICMD_DEBUG"), "true")
}
