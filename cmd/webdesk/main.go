package main

import (
	"github.com/bryanchriswhite/webdesk/cmd/webdesk/commands"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()
	commands.Execute()
}
