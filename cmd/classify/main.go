// classify runs a single classification on a JPEG file and prints what the
// recognition loop would make of it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/go-realitywrite/internal/config"
	"github.com/teslashibe/go-realitywrite/internal/log"
	"github.com/teslashibe/go-realitywrite/pkg/classify"
	"github.com/teslashibe/go-realitywrite/pkg/classify/cloudvision"
	"github.com/teslashibe/go-realitywrite/pkg/classify/dnn"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
	"github.com/teslashibe/go-realitywrite/pkg/recognition"
)

func main() {
	backend := flag.String("classifier", config.Env("REALITYWRITE_CLASSIFIER", config.DefaultClassifier), "dnn or cloudvision")
	model := flag.String("model", config.Env("REALITYWRITE_MODEL_PATH", config.DefaultModelPath), "ONNX model path")
	labels := flag.String("labels", config.Env("REALITYWRITE_LABELS_PATH", config.DefaultLabelsPath), "Labels file")
	top := flag.Int("top", 5, "Number of classifications to print")
	timeout := flag.Duration("timeout", 10*time.Second, "Classification timeout")
	flag.Parse()

	log.Init(config.Env("LOG_LEVEL", "warn"))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: classify [flags] image.jpg")
		os.Exit(2)
	}

	f, err := frame.LoadJPEG(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c, err := newClassifier(ctx, *backend, *model, *labels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	start := time.Now()
	obs, err := c.Classify(ctx, f, recognition.DefaultCropPolicy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ classify: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("📷 %s (%dx%d) via %s in %v\n", flag.Arg(0), f.Width, f.Height, c.Name(), time.Since(start).Round(time.Millisecond))
	for i, cl := range obs.Limit(*top) {
		fmt.Printf("  %d. %-40s %.3f\n", i+1, cl.Identifier, cl.Confidence)
	}

	best, ok := obs.Top()
	switch {
	case !ok:
		fmt.Printf("🏷️  %s (no detection)\n", recognition.Sentinel)
	case best.Confidence < recognition.ConfidenceThreshold:
		fmt.Printf("🏷️  %s (top %.2f below %.2f)\n", recognition.Sentinel, best.Confidence, recognition.ConfidenceThreshold)
	default:
		fmt.Printf("🏷️  %s\n", recognition.PrimaryLabel(best.Identifier))
	}
}

func newClassifier(ctx context.Context, backend, model, labels string) (classify.Classifier, error) {
	switch backend {
	case "dnn":
		cfg := dnn.DefaultConfig()
		cfg.ModelPath, cfg.LabelsPath = model, labels
		return dnn.New(cfg)
	case "cloudvision":
		var opts []cloudvision.Option
		if key := config.Env("GOOGLE_API_KEY", ""); key != "" {
			opts = append(opts, cloudvision.WithAPIKey(key))
		}
		return cloudvision.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown classifier %q", backend)
	}
}
