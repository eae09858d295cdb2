package main

import "github.com/ValentinKolb/kvorm/cmd"

func main() {
	cmd.Execute()
}
