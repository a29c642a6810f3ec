// Command docmodel evaluates attribute formulas, inspects templates and
// replays or mirrors journaled command streams.
package main

import "github.com/mesh-intelligence/docmodel/internal/cli"

func main() {
	cli.Execute()
}
