package main

import "github.com/KaramelBytes/incidentlens/cmd"

func main() {
	cmd.Execute()
}
