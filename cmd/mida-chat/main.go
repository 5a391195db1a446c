// Package main is the entry point for the MIDA Malaysia conversational chatbot.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/mida-chat/cmd/mida-chat/app"
)

func main() {
	app.NewApp().Run()
}
