// The main package for the weibo-relay executable.
package main

import (
	"github.com/JakeFAU/weibo-relay/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
