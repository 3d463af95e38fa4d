package main

import "agent-chat/internal/cli"

func main() {
	cli.Execute()
}
