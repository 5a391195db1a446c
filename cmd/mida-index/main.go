// Package main is the entry point for the passage index builder.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/mida-chat/cmd/mida-index/app"
)

func main() {
	app.NewApp().Run()
}
