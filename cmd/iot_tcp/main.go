//go:build unix

package main

import (
	"log"
	"os"

	"github.com/Trinoooo/iot_tcp/cli"
	"github.com/Trinoooo/iot_tcp/logs"
)

func main() {
	defer logs.Sync()
	wrapper := cli.NewWrapper()
	if err := wrapper.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
