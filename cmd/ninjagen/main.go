// Ninjagen generates a Ninja build graph for a C++/Vulkan project and runs
// ninja on it.
package main

import "github.com/albertocavalcante/ninjagen/cmd/ninjagen/internal/cli"

func main() {
	cli.Execute()
}
