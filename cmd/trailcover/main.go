// Command trailcover matches recorded GPS activities against the trail
// network of a small mountain area and reports which trails have been run.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "sync":
		err = runSync(args)
	case "render":
		err = runRender(args)
	case "debug":
		err = runDebug(args)
	case "export":
		err = runExport(args)
	case "serve":
		err = runServe(args)
	case "update":
		err = runUpdate(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`trailcover - trail coverage from your GPS recordings

Usage: trailcover <command> [options]

Commands:
  sync      Download new activities from Garmin Connect
  render    Render the coverage map as a PNG
  debug     Render every segment in its own color
  export    Write segments and grid data as JSON for the web viewer
  serve     Serve the results and the web viewer over HTTP
  update    sync followed by render
  help      Show this help message

Every command accepts -config <file> to override the built-in profile.
Run 'trailcover <command> -h' for command-specific options.`)
}

// configFlag registers the shared -config flag on a flag set.
func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "YAML config file overriding the built-in profile")
}
