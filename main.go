package main

import (
	"fmt"
	"os"

	"lumis/internal/config"
	"lumis/internal/db"
	"lumis/internal/ui"
)

func main() {
	configDir, err := config.Dir()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	settings, err := config.LoadSettings(configDir)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	config.InitDebugLog(configDir, settings.Experiments.Verbose)

	keys := config.LoadKeys(configDir)
	if len(keys) == 0 {
		fmt.Println("No API keys found! Cloud mode requires a Poe API key in:")
		fmt.Println("  " + configDir + "/credentials.toml")
	}

	conn, dbErr := db.Open(configDir)

	p := ui.NewProgram(settings, configDir, keys, conn, dbErr)
	finalModel, err := p.Run()
	if err != nil {
		fmt.Printf("Error: %v", err)
		os.Exit(1)
	}
	if m, ok := finalModel.(*ui.Model); ok {
		if m.DB != nil {
			_ = m.DB.Close()
		}
	}
}
