package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/posboard/cmd/utils/internal/commands"
	"github.com/aquamarinepk/aqm"
)

const (
	appName    = "posboard-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	config, err := aqm.LoadConfig("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "publish-demo":
		if err := commands.PublishDemo(ctx, config, logger); err != nil {
			log.Fatalf("Publishing demo orders failed: %v", err)
		}
		logger.Info("Demo orders published")

	case "publish-status":
		if err := commands.PublishStatus(ctx, config, logger); err != nil {
			log.Fatalf("Publishing status change failed: %v", err)
		}
		logger.Info("Status change published")

	case "list-acks":
		if err := commands.ListAcks(ctx, config, logger); err != nil {
			log.Fatalf("Listing acknowledgments failed: %v", err)
		}

	case "clear-acks":
		if err := commands.ClearAcks(ctx, config, logger); err != nil {
			log.Fatalf("Clearing acknowledgments failed: %v", err)
		}
		logger.Info("Acknowledgments cleared")

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - kitchen board utility commands

Usage:
  %s <command> [options]

Commands:
  publish-demo    Publish a batch of placed demo orders to a location channel
  publish-status  Publish a status change for one order
  list-acks       List the latest journaled acknowledgments
  clear-acks      Delete journaled acknowledgments (one location, or all)
  version         Print version information
  help            Show this help message

Environment Variables:
  UTILS_NATS_URL        NATS server URL (default: nats://localhost:4222)
  UTILS_LOCATION_ID     Location to target (publish default: demo; acks: all locations when unset)
  UTILS_ORDER_ID        Order id for publish-status
  UTILS_ORDER_STATUS    Target status for publish-status
  UTILS_BOARD_CURRENCY  Currency for demo orders (default: USD)
  UTILS_DB_MONGO_URL    MongoDB connection URL (default: mongodb://localhost:27017)
  UTILS_DB_MONGO_NAME   Journal database (default: posboard)
  UTILS_LOG_LEVEL       Log level: debug, info, warn, error (default: info)

Examples:
  UTILS_LOCATION_ID=downtown %s publish-demo
  UTILS_ORDER_ID=... UTILS_ORDER_STATUS=ready %s publish-status
  UTILS_LOCATION_ID=downtown %s clear-acks

`, appName, appName, appName, appName, appName)
}
