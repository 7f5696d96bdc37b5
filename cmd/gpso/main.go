// Minimal entry point that delegates CLI handling to the cobra root
// command in internal/cli/root.go.
package main

import (
	"github.com/gpso/gpso/internal/cli"
)

func main() {
	cli.Execute()
}
