package main

import (
	"fmt"
	"os"

	"github.com/minsksanek/mailreader/pkgs/config"
)

func handleInit() error {
	root := config.ExampleRootConfig()

	configPath, err := config.GetEnvConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}
	if err := config.SaveConfig(configPath, root); err != nil {
		return err
	}
	fmt.Printf("Created config file at: %s\n", configPath)
	fmt.Println("Please edit the file to add your mail account credentials.")
	return nil
}
