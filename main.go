package main

import "github.com/greenstudio/greenstudio/cmd"

func main() {
	cmd.Execute()
}
