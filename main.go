package main

import "github.com/clinicware/face-finder/cmd"

func main() {
	cmd.Execute()
}
