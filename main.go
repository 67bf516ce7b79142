package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"model-viewer/config"
	"model-viewer/eventloop"
	"model-viewer/format"
	"model-viewer/loader"
	"model-viewer/logx"
	"model-viewer/models"
	"model-viewer/viewer"
	"model-viewer/viewport"
	"model-viewer/vkpresent"
)

func init() {
	// This is needed to arrange that main() runs on main thread.
	// See documentation for functions that are only allowed to be called
	// from the main thread.
	runtime.LockOSThread()

	flag.BoolVar(&args.debug, "debug", false, "Enable Vulkan validation layers and debug logging")
	flag.StringVar(&args.config, "config", config.Filename, "Path to the settings file")
}

var args struct {
	debug  bool
	config string
}

func main() {
	flag.Parse()

	cfg, err := config.Load(args.config)
	if err != nil {
		log.Fatalf("ERROR: %s", err)
	}
	if args.debug {
		cfg.Validation = true
		cfg.LogLevel = "debug"
	}
	level, _ := cfg.Level()
	logx.UserLevel = level
	logger := logx.SetDefaultLogger(cfg.Colour)

	app := &ViewerApp{
		cfg:       cfg,
		log:       logger,
		modelPath: config.ModelPath,
	}
	if err := app.Run(); err != nil {
		log.Fatalf("ERROR: %s", err)
	}
}

// ViewerApp shows one model in a window.
type ViewerApp struct {
	cfg config.Config
	log *slog.Logger

	modelPath string

	window    *glfw.Window
	presenter *vkpresent.Presenter
}

// Run runs the viewer until the window is closed.
func (a *ViewerApp) Run() error {
	if err := a.initWindow(); err != nil {
		return fmt.Errorf("initWindow: %w", err)
	}
	defer a.cleanWindow()

	presenter, err := vkpresent.New(a.window, vkpresent.Options{
		AppName:    a.cfg.Title,
		Validation: a.cfg.Validation,
		Log:        a.log,
	})
	if err != nil {
		return fmt.Errorf("creating presenter: %w", err)
	}
	a.presenter = presenter
	defer presenter.Destroy()

	if err := a.mainLoop(); err != nil {
		return fmt.Errorf("mainLoop: %w", err)
	}

	return nil
}

func (a *ViewerApp) initWindow() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw.Init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(a.cfg.Width, a.cfg.Height, a.cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("creating window: %w", err)
	}

	a.window = window
	return nil
}

func (a *ViewerApp) cleanWindow() {
	a.window.Destroy()
	glfw.Terminate()
}

func (a *ViewerApp) mainLoop() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := eventloop.New(glfw.PostEmptyEvent)
	surface := viewer.NewRasterSurface(a.presenter)

	opts := a.cfg.Options()
	opts.Width, opts.Height = a.window.GetFramebufferSize()
	vc := viewer.Bootstrap(opts, surface, loop, a.log)

	decision, err := format.Classify(a.modelPath)
	var unsupported *format.UnsupportedError
	if errors.As(err, &unsupported) {
		a.log.Error(unsupported.Error(), "path", a.modelPath)
		a.log.Warn(unsupported.Hint())
	}

	fetcher := &loader.FSFetcher{
		FS: loader.Layered(os.DirFS("."), models.FS),
	}
	if a.cfg.Progress {
		fetcher.Progress = os.Stderr
	}
	loader.New(fetcher, loop, vc.Scene, a.log).Load(ctx, a.modelPath, decision)

	controller := viewport.NewController(surface, vc.Camera, opts.Width, opts.Height)
	controller.OnResize = func(int, int) { a.presenter.Resized() }
	bindInput(a.window, controller)

	rl := viewer.NewRenderLoop(vc, a.cfg.Headlight)
	rl.OnFrame = func(time.Time) { controller.Update() }
	rl.Start()

	for !a.window.ShouldClose() {
		// Minimised windows have no framebuffer. Sleep until an event or
		// a posted callback arrives instead of drawing frames nobody sees.
		if w, h := a.window.GetFramebufferSize(); w == 0 || h == 0 {
			glfw.WaitEvents()
			loop.RunPending()
			continue
		}

		glfw.PollEvents()
		loop.RunPending()
		loop.Tick(time.Now())

		if err := rl.Err(); err != nil {
			return fmt.Errorf("error drawing a frame: %w", err)
		}
	}

	a.log.Debug("window closed", "frames", rl.Frames(), "skipped", rl.Skipped())
	return nil
}
