// Command field-execd is the long-running SSH worker for a field-operations
// tool: it brokers pooled SSH sessions, streaming command execution, file
// writes, and key management over a localhost-only JSON protocol.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"field-execd/internal/daemon"
	"field-execd/internal/statefile"
)

func main() {
	log.SetFlags(log.LstdFlags)

	flags := flag.NewFlagSet("field-execd", flag.ContinueOnError)
	flags.Usage = func() {}
	port := flags.Int("port", 0, "TCP port to listen on (0 = kernel-chosen)")
	stateFile := flags.String("state-file", "", "path to write the daemon's state file")
	flags.Parse(knownArgs(flags, os.Args[1:]))

	path := *stateFile
	if path == "" {
		path = statefile.DefaultPath(os.Getenv("HOME"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("[Bootstrap] shutting down")
		cancel()
	}()

	if err := daemon.Run(ctx, daemon.Options{Port: *port, StateFile: path, Protocol: 1}); err != nil {
		log.Printf("[Bootstrap] %v", err)
		os.Exit(1)
	}
}

// knownArgs filters args down to the ones fs recognizes, so unrecognized
// flags are silently ignored instead of aborting the process, as the CLI
// contract requires.
func knownArgs(fs *flag.FlagSet, args []string) []string {
	known := make(map[string]bool)
	fs.VisitAll(func(f *flag.Flag) { known["-"+f.Name] = true; known["--"+f.Name] = true })

	var out []string
	for i := 0; i < len(args); i++ {
		name, _, hasValue := strings.Cut(args[i], "=")
		if !known[name] {
			continue
		}
		out = append(out, args[i])
		if !hasValue && i+1 < len(args) {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}
