package main

import "github.com/KaramelBytes/irradiance-cli/cmd"

func main() {
	cmd.Execute()
}
