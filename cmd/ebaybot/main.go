package main

import (
	"context"

	"jo3qma.com/ebay_tracking/cmd/ebaybot/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
