// RealityWrite - recognizes the object in front of the camera and keeps a
// label floating in front of it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-realitywrite/internal/config"
	"github.com/teslashibe/go-realitywrite/internal/log"
	"github.com/teslashibe/go-realitywrite/pkg/realitywrite"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	cfg = parseFlags(cfg)
	log.Init(cfg.LogLevel)

	// New validates the merged environment and flag values.
	app, err := realitywrite.New(cfg)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		app.Shutdown()
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer app.Shutdown()

	if err := app.Run(ctx); err != nil {
		log.Error("runtime error", "error", err)
		app.Shutdown()
		os.Exit(1)
	}
}

// parseFlags lets command line flags override environment values.
func parseFlags(cfg config.Config) config.Config {
	flag.StringVar(&cfg.Source, "source", cfg.Source, "Frame source: camera, webrtc, file")
	flag.StringVar(&cfg.CameraDevice, "device", cfg.CameraDevice, "Camera index, stream URL, or JPEG path(s) for -source=file")
	flag.StringVar(&cfg.SignallingURL, "signalling", cfg.SignallingURL, "WebRTC signalling URL (ws://host:8443)")
	flag.StringVar(&cfg.ProducerName, "producer", cfg.ProducerName, "WebRTC producer name")
	flag.StringVar(&cfg.Classifier, "classifier", cfg.Classifier, "Classifier: dnn, cloudvision, chain")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "ONNX model path")
	flag.StringVar(&cfg.LabelsPath, "labels", cfg.LabelsPath, "Labels file, one per line")
	flag.DurationVar(&cfg.PollInterval, "interval", cfg.PollInterval, "Recognition interval")
	flag.StringVar(&cfg.DashboardPort, "port", cfg.DashboardPort, "Dashboard port, empty to disable")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		cfg.LogLevel = "debug"
	}
	return cfg
}
