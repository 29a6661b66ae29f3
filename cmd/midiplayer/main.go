package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"gioui.org/app"
	"github.com/midiplayer/midiplayer"
	"github.com/midiplayer/midiplayer/cmd"
	"github.com/midiplayer/midiplayer/playback"
	"github.com/midiplayer/midiplayer/remote"
	"github.com/midiplayer/midiplayer/surface"
	"github.com/midiplayer/midiplayer/surface/gioui"
	"github.com/midiplayer/midiplayer/version"
	"go.uber.org/zap"
)

var (
	configFile  = flag.String("config", midiplayer.DefaultConfigPath(), "read configuration from `file`")
	assets      = flag.String("assets", "", "play MIDI files from `dir`")
	port        = flag.Int("port", 0, "listen for OSC messages on UDP `port`")
	device      = flag.String("device", "", "open the MIDI output called `name`")
	headless    = flag.Bool("headless", false, "run without a window, controlled over OSC only")
	debug       = flag.Bool("debug", false, "log debug messages in a human readable format")
	versionFlag = flag.Bool("v", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	config, configErr := midiplayer.ReadConfig(*configFile)
	if isFlagPassed("assets") {
		config.Assets = *assets
	}
	if isFlagPassed("port") {
		config.OSC.Port = *port
	}
	if isFlagPassed("device") {
		config.Device = *device
	}

	registry := cmd.NewDeviceRegistry(config.BuiltinSynth)
	opts := []playback.Option{
		playback.WithLogger(logger.Named("playback")),
		playback.WithRandomizeParams(config.Randomize.RandomizeParams),
		playback.WithSpeedRange(config.MinSpeed, config.MaxSpeed),
	}
	if seed := config.Randomize.Seed; seed != 0 {
		opts = append(opts, playback.WithRand(rand.New(rand.NewPCG(seed, seed))))
	}
	ctrl := playback.NewController(registry, config.Assets, opts...)
	ctrl.SetRandomize(config.Randomize.Enabled)
	if err := ctrl.SetSpeed(config.Speed); err != nil {
		logger.Warn("ignoring configured speed", zap.Error(err))
	}

	broker := surface.NewBroker()
	model := surface.NewModel(broker, ctrl, logger.Named("surface"))
	if configErr != nil {
		model.Alerts().Add(configErr.Error(), surface.Warning)
	}
	model.SelectInitialDevice(config.Device, config.DefaultDeviceIndex)

	server, err := remote.Listen(config.OSCAddr(), broker, logger.Named("osc"))
	if err != nil {
		// the player is still usable from the window
		model.Alerts().Add(err.Error(), surface.Error)
	} else {
		go server.Serve()
	}

	shutdown := func() {
		if server != nil {
			if err := server.Close(); err != nil {
				logger.Warn("OSC server did not close cleanly", zap.Error(err))
			}
		}
		model.Close()
		if err := registry.Close(); err != nil {
			logger.Warn("device registry did not close cleanly", zap.Error(err))
		}
	}

	if *headless {
		if server == nil {
			logger.Warn("running headless without a control server")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		logger.Info("running headless", zap.String("version", version.String()))
		model.Run(ctx)
		shutdown()
		return
	}

	player := gioui.NewPlayer(model)
	go func() {
		player.Main()
		shutdown()
		logger.Sync()
		os.Exit(0)
	}()
	app.Main()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
