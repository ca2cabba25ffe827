// Command triangle draws a triangle with Vulkan, pacing CPU recording against
// GPU execution with a timeline semaphore. With -headless it renders on a
// software GPU instead and reports frame statistics.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/vkngwrapper/timeline-triangle/config"
)

func newLogger(cfg config.Log) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Level,
	}))
}

func run(args []string) error {
	flags := flag.NewFlagSet("triangle", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a TOML config file")
	headless := flags.Bool("headless", false, "render on the software GPU without a window")
	frames := flags.Int("frames", -1, "frames to render in headless mode (default from config)")
	err := flags.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *frames >= 0 {
		cfg.Headless.Frames = *frames
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if *headless {
		result, err := runHeadless(cfg, cfg.Headless.Frames, logger)
		if err != nil {
			return err
		}
		logger.Info("headless run complete", "result", result)
		return nil
	}

	return NewTriangleApplication(cfg, logger).Run()
}

func main() {
	err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
