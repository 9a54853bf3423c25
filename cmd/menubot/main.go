package main

import (
	"log"

	"github.com/lix74/menubot/core/cmd"
)

func main() {
	if err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
	}); err != nil {
		log.Fatalf("menubot: %v", err)
	}
}
