package main

import "asterplayer/cmd"

func main() {
	cmd.Execute()
}
