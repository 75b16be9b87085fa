// Command stepflow is a YAML-driven step runner.
package main

import "yqhp/stepflow/cmd"

func main() {
	cmd.Execute()
}
