// command sdlcscan runs a standalone Type-2 Communication Scanner: a PCF
// state machine per line, each line's BLU buffers bridged to a TCP peer
// standing in for the coax/modem-attached device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"

	"sdlcscan/ereg"
	"sdlcscan/icw"
	"sdlcscan/lineio"
	"sdlcscan/scanner"
)

var (
	numLines = flag.Int("lines", 4, "number of SDLC lines")
	bufSize  = flag.Int("buffer", 16384, "per-line BLU buffer size in bytes")
	basePort = flag.Int("baseport", lineio.DefaultBasePort, "first line's TCP port; line i listens on baseport+i")
	debug    = flag.Uint("debug", 0, "debug flag bitmask (0x02 scanner, 0x04 BLU)")
	monitor  = flag.Bool("monitor", false, "launch the interactive line monitor instead of running headless")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sdlcscan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := log.New(os.Stderr, "", log.LstdFlags)
	debugFlags := icw.DebugFlags(*debug)

	lines := make([]*icw.Line, *numLines)
	for i := range lines {
		lines[i] = icw.NewLine(i, *bufSize)
	}
	bus := ereg.NewBus(lines)

	s := scanner.New(bus, lines)
	s.Logger = logger
	s.Debug = debugFlags

	lineIOs := make([]*lineio.Line, *numLines)
	for i := range lineIOs {
		lio := lineio.NewLine(i, *basePort+i, lines[i])
		lio.Logger = logger
		lio.Debug = debugFlags
		if err := lio.Listen(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		lineIOs[i] = lio
		logger.Printf("sdlcscan: line %d listening on port %d", i, *basePort+i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logger.Printf("sdlcscan: shutting down")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx, scanner.DefaultCore)
	}()
	for i, lio := range lineIOs {
		wg.Add(1)
		go func(i int, lio *lineio.Line) {
			defer wg.Done()
			lio.Run(ctx, lineio.Core)
		}(i, lio)
	}

	if *monitor {
		if err := scanner.Monitor(s); err != nil {
			cancel()
			wg.Wait()
			return err
		}
		cancel()
	}

	wg.Wait()
	return nil
}
