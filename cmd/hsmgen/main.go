// Command hsmgen compiles a hierarchical state machine model into
// C, Rust, or Python source plus a Graphviz diagram.
package main

import (
	"fmt"
	"os"

	"github.com/hsmgen/hsmgen/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(cli.ExitCode(err))
	}
}
