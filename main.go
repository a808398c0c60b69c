package main

import "github.com/KaramelBytes/nomadcompass/cmd"

func main() {
	cmd.Execute()
}
