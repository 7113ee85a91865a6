package main

import (
	"github.com/fleetwatch-io/fleetwatch/cmd/fleetwatch-server/app"
)

func main() {
	app.NewApp().Run()
}
