package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dustin/go-humanize"

	"siteadmin/internal/config"
)

func main() {
	path := flag.String("config", "config.json", "configuration file")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("Configuration loaded successfully!")
	fmt.Printf("Storage Backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("Storage Path: %s\n", cfg.Storage.Path)
	fmt.Printf("Storage Quota: %s\n", quota(cfg.Storage.QuotaBytes))
	fmt.Printf("Chat Limit: %d messages\n", cfg.Limits.ChatMax)
	fmt.Printf("File Limit: %d files (fallback %d)\n", cfg.Limits.FilesMax, cfg.Limits.FilesFallback)
	fmt.Printf("Max File Size: %s\n", humanize.Bytes(uint64(cfg.Limits.MaxFileBytes)))
	fmt.Printf("Activity Limit: %d entries\n", cfg.Limits.ActivityMax)
	fmt.Printf("Default Admin: %s\n", cfg.DefaultAdmin.Username)
	fmt.Printf("Tab Idle Timeout: %d min\n", cfg.Session.IdleTimeoutMinutes)
	fmt.Printf("Server Port: %d\n", cfg.Server.Port)
	fmt.Printf("Server Bind Address: %s\n", cfg.Server.BindAddress)
	fmt.Printf("Log Level: %s\n", cfg.Logging.Level)
}

func quota(n int64) string {
	if n <= 0 {
		return "unlimited"
	}
	return humanize.Bytes(uint64(n))
}
