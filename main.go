package main

import "mediagate/cmd"

func main() {
	cmd.Execute()
}
