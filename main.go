package main

import (
	"log"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/cmd"
	_ "github.com/PiyushSaini04/optimus-event-flow-sub000/migrations"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
