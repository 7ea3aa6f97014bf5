package main

import "github.com/zjrosen/vellum/cmd"

func main() {
	cmd.Execute()
}
