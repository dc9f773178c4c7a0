// wlcomp is a Wayland compositor. It runs nested in an X11 session
// when one is available and headless otherwise.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"deedles.dev/wlcomp/backend"
	"deedles.dev/wlcomp/compositor"
	"deedles.dev/wlcomp/config"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/render/accel"
	"deedles.dev/wlcomp/wire"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

func setupLogging() {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     term.IsTerminal(int(os.Stderr.Fd())),
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadFile(path)
		return cfg, path, err
	}
	return config.Load()
}

func listen(socket string) (*wire.Listener, error) {
	if socket == "" {
		return wire.ListenAuto()
	}
	if !filepath.IsAbs(socket) {
		socket = filepath.Join(wire.RuntimeDir(), socket)
	}
	return wire.Listen(socket)
}

func parseSize(str string) (image.Point, error) {
	var size image.Point
	_, err := fmt.Sscanf(str, "%dx%d", &size.X, &size.Y)
	if err != nil {
		return size, fmt.Errorf("parse size %q: %w", str, err)
	}
	if (size.X <= 0) || (size.Y <= 0) {
		return size, fmt.Errorf("invalid size %q", str)
	}
	return size, nil
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "", "configuration file (default: search the XDG config directories)")
	backendName := flag.String("backend", "", "output backend: auto, x11 or headless (overrides the configuration)")
	outputs := flag.Int("outputs", 1, "number of outputs to create")
	size := flag.String("size", "1280x720", "size of each output")
	socket := flag.String("socket", "", "socket name or path (default: first free wayland-N)")
	writeDefault := flag.Bool("write-config", false, "write the default configuration and exit")
	flag.Parse()

	if *writeDefault {
		path := *configPath
		if path == "" {
			path = config.DefaultPath()
		}
		err := config.Default().Save(path)
		if err != nil {
			return err
		}
		logrus.WithField("path", path).Infoln("wrote default configuration")
		return nil
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logrus.SetLevel(cfg.General.Level())
	if path == "" {
		logrus.Infoln("no configuration file found, using defaults")
	}

	outputSize, err := parseSize(*size)
	if err != nil {
		return err
	}

	name := cfg.General.Backend
	if *backendName != "" {
		name = *backendName
	}
	be, err := backend.Open(name, backend.Options{
		Outputs: *outputs,
		Size:    outputSize,
	})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}

	lis, err := listen(*socket)
	if err != nil {
		be.Close()
		return fmt.Errorf("listen: %w", err)
	}

	c, err := compositor.New(compositor.Options{
		Config:     cfg,
		ConfigPath: path,
		Backend:    be,
		Listener:   lis,
		Hardware:   func() render.Renderer { return accel.New() },
	})
	if err != nil {
		be.Close()
		return err
	}

	err = os.Setenv("WAYLAND_DISPLAY", c.Socket())
	if err != nil {
		logrus.WithError(err).Warnln("set WAYLAND_DISPLAY")
	}

	go handleSignals(ctx, c)

	return c.Run(ctx)
}

func handleSignals(ctx context.Context, c *compositor.Compositor) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logrus.Infoln("received SIGHUP, reloading configuration")
			err := c.Reload()
			if err != nil {
				logrus.WithError(err).Errorln("reload")
			}
		}
	}
}

func main() {
	setupLogging()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx)
	if err != nil {
		logrus.WithError(err).Fatalln("wlcomp")
	}
}
