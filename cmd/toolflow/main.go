// cmd/toolflow/main.go
package main

import (
	cmd "github.com/mwiater/toolflow/internal/cli"
)

// main starts the toolflow CLI by delegating to the cobra root command.
func main() {
	cmd.Execute()
}
