package main

import (
	"flag"
	"fmt"
	"os"

	"grimm.is/shunt/cmd"
	"grimm.is/shunt/internal/brand"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runFlags := flag.NewFlagSet("run", flag.ExitOnError)
		configFile := runFlags.String("config", "", "Configuration file")
		runFlags.StringVar(configFile, "c", "", "Configuration file (short)")
		runFlags.Parse(os.Args[2:])

		if err := cmd.RunDaemon(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		checkFlags.Parse(os.Args[2:])

		configFile := brand.DefaultConfigDir + "/" + brand.ConfigFileName
		if len(checkFlags.Args()) > 0 {
			configFile = checkFlags.Arg(0)
		}

		if err := cmd.RunCheck(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "queues":
		queueFlags := flag.NewFlagSet("queues", flag.ExitOnError)
		count := queueFlags.Int("n", 2, "How many free queue numbers to report")
		queueFlags.Parse(os.Args[2:])

		if err := cmd.RunQueues(*count); err != nil {
			fmt.Fprintf(os.Stderr, "Queues failed: %v\n", err)
			os.Exit(1)
		}

	case "version", "--version", "-v":
		cmd.RunVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - host packet diversion daemon

Usage: %s <command> [options]

Commands:
  run       Run the diversion daemon in the foreground
              -c, --config <file>   Configuration file (default %s/%s)
  check     Validate a configuration file
  queues    Show bound and free NFQUEUE numbers
              -n <count>            How many free numbers to report (default 2)
  version   Show version information
  help      Show this help

`, brand.Name, brand.BinaryName, brand.DefaultConfigDir, brand.ConfigFileName)
}
