// Command flowsched-demo wires a small generator graph together and runs
// it through the scheduler, printing every emitted chunk. It exists to
// exercise the scheduler end to end; production use embeds the scheduler
// package directly and is not expected to shell out to this binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/itohio/flowsched/examples"
	"github.com/itohio/flowsched/generator"
	"github.com/itohio/flowsched/internal/chunk"
	"github.com/itohio/flowsched/internal/config"
	"github.com/itohio/flowsched/scheduler"
)

func main() {
	help := flag.Bool("help", false, "Help")
	configPath := flag.String("config", "", "Path to a YAML config file (see internal/config.Demo)")
	count := flag.Int("count", 0, "Number of values the demo source produces (overrides config)")
	maxWorkers := flag.Int("workers", 0, "Max concurrent CPU tasks (overrides config)")
	memMB := flag.Int("mem-mb", 0, "Memory threshold in MB before throttling sources (overrides config)")

	flag.Parse()
	if *help {
		flag.PrintDefaults()
		return
	}

	cfg := config.DefaultDemo()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "flowsched-demo: config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *count > 0 {
		cfg.Count = *count
	}
	if *maxWorkers > 0 {
		cfg.MaxWorkers = *maxWorkers
	}
	if *memMB > 0 {
		cfg.MemoryThresholdMB = *memMB
	}

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancelCtx()
	}()

	values := make([]float32, cfg.Count)
	for i := range values {
		values[i] = float32(i + 1)
	}

	const (
		raw    chunk.Datatype = "raw"
		copied chunk.Datatype = "copied"
		summed chunk.Datatype = "summed"
	)

	src := newValueSource(raw, values)
	passthrough, err := examples.Build("identity", examples.WithIn(raw), examples.WithOut(copied))
	if err != nil {
		fmt.Fprintln(os.Stderr, "flowsched-demo: build identity:", err)
		os.Exit(1)
	}
	sum, err := examples.Build("runningsum", examples.WithIn(copied), examples.WithOut(summed))
	if err != nil {
		fmt.Fprintln(os.Stderr, "flowsched-demo: build runningsum:", err)
		os.Exit(1)
	}
	sink, err := examples.Build("relay", examples.WithIn(summed))
	if err != nil {
		fmt.Fprintln(os.Stderr, "flowsched-demo: build relay:", err)
		os.Exit(1)
	}

	opts := []scheduler.Option{}
	if cfg.MaxWorkers > 0 {
		opts = append(opts, scheduler.WithMaxWorkers(cfg.MaxWorkers))
	}
	if cfg.MemoryThresholdMB > 0 {
		opts = append(opts, scheduler.WithMemoryThresholdMB(cfg.MemoryThresholdMB))
	}
	if cfg.WaitTimeout > 0 {
		opts = append(opts, scheduler.WithWaitTimeout(cfg.WaitTimeout))
	}

	sched, err := scheduler.New([]generator.Generator{src, passthrough, sum, sink}, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "flowsched-demo: setup:", err)
		os.Exit(1)
	}

	for emission := range sched.Run(ctx) {
		if emission.Err != nil {
			fmt.Fprintln(os.Stderr, "flowsched-demo:", emission.Err)
			os.Exit(1)
		}
		fmt.Printf("%v\n", emission.Payload.Value)
	}
}
