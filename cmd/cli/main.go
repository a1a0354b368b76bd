package main

import "github.com/dfedorov/statement-desk/internal/cli"

func main() {
	cli.Execute()
}
