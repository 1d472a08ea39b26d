// Package realitywrite assembles the perception pipeline: a frame source,
// a classifier, the recognition loop and the dashboard.
package realitywrite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/go-realitywrite/internal/config"
	"github.com/teslashibe/go-realitywrite/internal/log"
	"github.com/teslashibe/go-realitywrite/pkg/camera"
	"github.com/teslashibe/go-realitywrite/pkg/classify"
	"github.com/teslashibe/go-realitywrite/pkg/classify/cloudvision"
	"github.com/teslashibe/go-realitywrite/pkg/classify/dnn"
	"github.com/teslashibe/go-realitywrite/pkg/frame"
	"github.com/teslashibe/go-realitywrite/pkg/overlay"
	"github.com/teslashibe/go-realitywrite/pkg/recognition"
	"github.com/teslashibe/go-realitywrite/pkg/video"
	"github.com/teslashibe/go-realitywrite/pkg/web"
)

// App owns every component and their lifecycle.
type App struct {
	config config.Config
	logger *slog.Logger

	source     frame.Source
	classifier classify.Classifier
	state      *recognition.State
	loop       *recognition.Loop
	dashboard  *web.Server
	presenters []recognition.Presenter

	// producers keep the source fed, e.g. camera capture.
	producers []func(context.Context) error
	closers   []io.Closer
}

// Option customizes an App before Init.
type Option func(*App)

// WithSource replaces the configured frame source.
func WithSource(src frame.Source) Option {
	return func(a *App) { a.source = src }
}

// WithClassifier replaces the configured classifier.
func WithClassifier(c classify.Classifier) Option {
	return func(a *App) { a.classifier = c }
}

// WithPresenter adds a presenter that receives every label change.
func WithPresenter(p recognition.Presenter) Option {
	return func(a *App) { a.presenters = append(a.presenters, p) }
}

// New validates cfg and creates an uninitialized App.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{
		config: cfg,
		logger: log.Component("app"),
		state:  recognition.NewState(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init opens the source and classifier and builds the loop and dashboard.
// Call Shutdown even when Init fails.
func (a *App) Init(ctx context.Context) error {
	a.logger.Info("initializing",
		"source", a.config.Source,
		"classifier", a.config.Classifier,
		"interval", a.config.PollInterval)

	if a.source == nil {
		if err := a.initSource(ctx); err != nil {
			return fmt.Errorf("source: %w", err)
		}
	}
	if a.classifier == nil {
		if err := a.initClassifier(ctx); err != nil {
			return fmt.Errorf("classifier: %w", err)
		}
	}
	a.closers = append(a.closers, a.classifier)

	a.loop = recognition.New(a.source, a.classifier, a.state,
		recognition.WithInterval(a.config.PollInterval),
		recognition.WithLogger(log.Component("recognition")))

	a.presenters = append(a.presenters, logPresenter{logger: a.logger})

	if a.config.DashboardPort != "" {
		srv, err := web.NewServer(web.Config{Port: a.config.DashboardPort}, web.Deps{
			State:    a.state,
			Stats:    a.loop.Stats,
			Frames:   a.source,
			Renderer: overlay.New(overlay.DefaultConfig()),
		})
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		a.dashboard = srv
		a.presenters = append(a.presenters, srv)
	}
	return nil
}

func (a *App) initSource(ctx context.Context) error {
	switch a.config.Source {
	case "camera":
		cfg := camera.DefaultConfig()
		cfg.Device = a.config.CameraDevice
		cam, err := camera.Open(cfg)
		if err != nil {
			return err
		}
		a.source = cam
		a.producers = append(a.producers, cam.Run)
		a.closers = append(a.closers, cam)

	case "webrtc":
		cfg := video.DefaultConfig()
		cfg.SignallingURL = a.config.SignallingURL
		if a.config.ProducerName != "" {
			cfg.ProducerName = a.config.ProducerName
		}
		client, err := video.NewClient(cfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client)
		if err := client.Connect(ctx); err != nil {
			return err
		}
		a.source = client

	case "file":
		var frames []*frame.Frame
		for _, path := range strings.Split(a.config.CameraDevice, ",") {
			f, err := frame.LoadJPEG(strings.TrimSpace(path))
			if err != nil {
				return err
			}
			frames = append(frames, f)
		}
		static := frame.NewStatic(frames...)
		static.Loop = true
		a.source = static
	}
	return nil
}

func (a *App) initClassifier(ctx context.Context) error {
	switch a.config.Classifier {
	case "dnn":
		c, err := a.newDNN()
		if err != nil {
			return err
		}
		a.classifier = c

	case "cloudvision":
		c, err := a.newCloudVision(ctx)
		if err != nil {
			return err
		}
		a.classifier = c

	case "chain":
		local, err := a.newDNN()
		if err != nil {
			return err
		}
		remote, err := a.newCloudVision(ctx)
		if err != nil {
			local.Close()
			return err
		}
		a.classifier = classify.NewChain(log.Component("classify"), local, remote)
	}
	return nil
}

func (a *App) newDNN() (*dnn.Classifier, error) {
	cfg := dnn.DefaultConfig()
	cfg.ModelPath = a.config.ModelPath
	cfg.LabelsPath = a.config.LabelsPath
	cfg.Logger = log.Component("dnn")
	return dnn.New(cfg)
}

func (a *App) newCloudVision(ctx context.Context) (*cloudvision.Classifier, error) {
	opts := []cloudvision.Option{cloudvision.WithLogger(log.Component("cloudvision"))}
	if a.config.GoogleAPIKey != "" {
		opts = append(opts, cloudvision.WithAPIKey(a.config.GoogleAPIKey))
	} else if a.config.CredentialsFile != "" {
		opts = append(opts, cloudvision.WithCredentialsFile(a.config.CredentialsFile))
	}
	return cloudvision.New(ctx, opts...)
}

// Run drives the pipeline until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a.loop == nil {
		return errors.New("realitywrite: Init not called")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		once sync.Once
		ferr error
	)
	fail := func(name string, err error) {
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		once.Do(func() {
			ferr = fmt.Errorf("%s: %w", name, err)
			cancel()
		})
	}
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fail(name, fn(ctx))
		}()
	}

	for _, produce := range a.producers {
		start("source", produce)
	}
	if a.dashboard != nil {
		start("dashboard", a.dashboard.Run)
	}
	start("recognition", a.loop.Run)

	wg.Add(1)
	go func() {
		defer wg.Done()
		recognition.Dispatch(ctx, a.loop.Changes(), a.presenters...)
	}()

	a.logger.Info("running", "dashboard", a.config.DashboardPort)
	wg.Wait()
	return ferr
}

// State returns the shared recognition state.
func (a *App) State() *recognition.State {
	return a.state
}

// Shutdown releases devices and classifiers.
func (a *App) Shutdown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
	a.logger.Info("stopped", "label", a.state.Label())
}

// logPresenter records every label change.
type logPresenter struct {
	logger *slog.Logger
}

func (p logPresenter) OnStateChanged(label string) {
	p.logger.Info("recognized", "label", label)
}
