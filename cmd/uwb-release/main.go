package main

import "github.com/oshokin/uwb-release/cmd/uwb-release/cmd"

func main() {
	cmd.Execute()
}
