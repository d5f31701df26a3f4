package main

import (
	"os"

	"github.com/fader2077/EcoGrid-AuditPredict/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
