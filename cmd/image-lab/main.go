package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/bioimage-lab-mcp/internal/config"
	"github.com/ironsheep/bioimage-lab-mcp/internal/logger"
	"github.com/ironsheep/bioimage-lab-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("image-lab - MCP server for bioimage analysis teaching tools")
	fmt.Println()
	fmt.Println("Usage: image-lab [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config PATH        Load settings from a YAML file")
	fmt.Println("  --write-config PATH  Write the default configuration to PATH and exit")
	fmt.Println("  --version, -v        Print version information")
	fmt.Println("  --help, -h           Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  IMAGE_LAB_LOG_LEVEL=debug       Enable debug logging")
	fmt.Println("  IMAGE_LAB_LOG_FORMAT=json       Log as JSON lines")
	fmt.Println("  IMAGE_LAB_OUTPUT_DIR=/tmp/out   Base directory for relative output_path values")
	fmt.Println("  IMAGE_LAB_TESSDATA=/usr/share   Tesseract data directory")
	fmt.Println("  IMAGE_LAB_OCR_LANGUAGE=deu      Default OCR language")
	fmt.Println("  IMAGE_LAB_WORKERS=4             Goroutines used by parallel filters")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	var (
		configPath  string
		writeConfig string
		showVersion bool
	)
	fs := flag.NewFlagSet("image-lab", flag.ExitOnError)
	fs.Usage = usage
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.StringVar(&writeConfig, "write-config", "", "write the default configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "print version information")
	fs.BoolVar(&showVersion, "v", false, "print version information")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Printf("image-lab %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	if writeConfig != "" {
		if err := config.CreateDefaultConfigFile(writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", writeConfig)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	// stdout is reserved for the protocol
	logger.Configure(cfg.Log.Level, cfg.Log.Format)
	logger.WithField("commit", GitCommit).WithField("built", BuildTime).Debugf("image-lab %s", Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, Version)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("server stopped")
	}
}
