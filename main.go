package main

import "github.com/mj1618/ui-harness/cmd"

func main() {
	cmd.Execute()
}
