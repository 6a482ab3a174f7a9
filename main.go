package main

import "github.com/ouywm/confrs/cmd"

func main() {
	cmd.Execute()
}
