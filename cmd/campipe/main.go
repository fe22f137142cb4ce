// Command campipe streams an OV7670 camera to an ST7735 display.
//
// Hardware Setup:
//
//	OV7670     Raspberry Pi
//	SIOC       GPIO3 (sensor.scl)
//	SIOD       GPIO2 (sensor.sda)
//	VSYNC      GPIO6
//	HREF       GPIO5
//	PCLK       GPIO13
//	D0..D7     GPIO16..GPIO23
//
//	ST7735     Raspberry Pi
//	SCK        GPIO11 (SPI0 CLK)
//	SDA        GPIO10 (SPI0 MOSI)
//	A0/DC      GPIO24
//	RESET      GPIO25
//	CS         GPIO8 (SPI0 CE0)
//
// Pins, buses and sizes are read from param.yaml in the config folder.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/flavioheleno/campipe/internal/config"
	"github.com/flavioheleno/campipe/internal/debuglog"
	"github.com/flavioheleno/campipe/internal/version"
	"github.com/flavioheleno/campipe/ov7670"
	"github.com/flavioheleno/campipe/pipeline"
	"github.com/sirupsen/logrus"
	"periph.io/x/host/v3"
)

const configSuffix = "campipe"

func main() {

	// Logger
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	mainCommand := filepath.Base(os.Args[0])

	// region Flags and Commands definition

	// Debug Mode
	debugMode := flag.Bool("d", false, "Enable debug mode")

	// User config dir
	defaultConfigDir := "./." + configSuffix
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		defaultConfigDir = filepath.Join(userConfigDir, configSuffix)
	}
	configDir := flag.String("c", defaultConfigDir, "Location of campipe config folder")

	// Usage
	flag.Usage = func() {
		fmt.Printf("\nUsage: %s [OPTIONS] [COMMAND]\n", mainCommand)
		fmt.Printf("\nStream an OV7670 camera to an ST7735 display\n")
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
		fmt.Printf("\nCommands:\n")
		fmt.Printf("  run       Calibrate the devices and stream frames\n")
		fmt.Printf("  probe     Check the sensor identity\n")
		fmt.Printf("  pattern   Cycle the display through red, green and blue\n")
		fmt.Printf("  version   Show the version number\n")
		fmt.Printf("\nRun '%s COMMAND --help' for more information on a command.\n", mainCommand)
	}

	// run command
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runFrames := runCmd.Int("n", -1, "Number of frames to stream (0 streams forever, -1 uses the config)")
	runCmd.Usage = func() {
		fmt.Printf("\nUsage: %s run [OPTIONS]\n", mainCommand)
		fmt.Printf("\nCalibrate the display and the sensor, then stream frames until interrupted\n")
		fmt.Printf("\nOptions:\n")
		runCmd.PrintDefaults()
	}

	// probe command
	probeCmd := flag.NewFlagSet("probe", flag.ExitOnError)
	probeCmd.Usage = func() {
		fmt.Printf("\nUsage: %s probe\n", mainCommand)
		fmt.Printf("\nRead the sensor identification registers\n")
	}

	// pattern command
	patternCmd := flag.NewFlagSet("pattern", flag.ExitOnError)
	patternDelay := patternCmd.Duration("t", time.Second, "Delay between colors")
	patternCmd.Usage = func() {
		fmt.Printf("\nUsage: %s pattern [OPTIONS]\n", mainCommand)
		fmt.Printf("\nCalibrate the display and fill it with red, green and blue until interrupted\n")
		fmt.Printf("\nOptions:\n")
		patternCmd.PrintDefaults()
	}

	// version command
	versionCmd := flag.NewFlagSet("version", flag.ExitOnError)
	versionCmd.Usage = func() {
		fmt.Printf("\nUsage: %s version\n", mainCommand)
		fmt.Printf("\nShow the version information\n")
	}

	// endregion

	// region Flags and Commands Parsing
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	var cmd *flag.FlagSet
	switch flag.Arg(0) {
	case "run":
		cmd = runCmd
	case "probe":
		cmd = probeCmd
	case "pattern":
		cmd = patternCmd
	case "version":
		cmd = versionCmd
	default:
		fmt.Printf("\n%s is not a campipe command\n", flag.Args()[0])
		flag.Usage()
		os.Exit(1)
	}
	cmd.Parse(flag.Args()[1:])
	if cmd.NArg() > 0 {
		fmt.Printf("\n\"%s %s\" accepts no arguments\n", mainCommand, flag.Arg(0))
		cmd.Usage()
		os.Exit(1)
	}
	// endregion

	if *debugMode {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
		logrus.Printf("Debug mode activated")
	}

	if versionCmd.Parsed() {
		fmt.Printf("Version %s\n", version.App)
		return
	}

	cfg, err := config.Load(*configDir, *debugMode)
	if err != nil {
		logrus.Fatalf("Unable to load config: %v", err)
	}

	// Listen stop signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer stop()

	switch {
	case runCmd.Parsed():
		if *runFrames >= 0 {
			cfg.Pipeline.Frames = *runFrames
		}
		err = run(ctx, cfg)
	case probeCmd.Parsed():
		err = probe(cfg)
	case patternCmd.Parsed():
		err = pattern(ctx, cfg, *patternDelay)
	}
	if err != nil && ctx.Err() == nil {
		stop()
		logrus.Fatal(err)
	}
}

// initHost loads the periph drivers and the serial debug hook.
func initHost(cfg *config.Config, cl *closers) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph.io: %w", err)
	}
	if cfg.Debug.Serial != "" {
		h, err := debuglog.Open(cfg.Debug.Serial, cfg.Debug.Baud)
		if err != nil {
			return err
		}
		logrus.AddHook(h)
		cl.add(h)
		logrus.Infof("Debug messages mirrored on %s", cfg.Debug.Serial)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	var cl closers
	defer func() {
		if cerr := cl.Close(); err == nil {
			err = cerr
		}
	}()
	if err := initHost(cfg, &cl); err != nil {
		return err
	}

	bus, pins, err := openSensorBus(&cfg.Sensor, &cl)
	if err != nil {
		return err
	}
	display, err := openDisplay(&cfg.Display, &cl)
	if err != nil {
		return err
	}
	cam, err := openCapture(&cfg.Capture, &cl)
	if err != nil {
		return err
	}
	sensor := ov7670.New(bus, &ov7670.Opts{Verify: cfg.Sensor.Verify})

	opts := &pipeline.Opts{
		Frames:     cfg.Pipeline.Frames,
		MaxDesyncs: cfg.Pipeline.MaxDesyncs,
	}
	if cfg.Sensor.Recover {
		opts.Pins = pins
	}
	p := pipeline.New(sensor, display, cam, opts)
	err = p.Run(ctx)

	st := cam.Stats()
	logrus.WithFields(logrus.Fields{
		"frames":  st.Frames,
		"rows":    st.Rows,
		"dropped": st.Dropped,
		"desyncs": st.Desyncs,
	}).Info("Capture stopped")
	return err
}

func probe(cfg *config.Config) (err error) {
	var cl closers
	defer func() {
		if cerr := cl.Close(); err == nil {
			err = cerr
		}
	}()
	if err := initHost(cfg, &cl); err != nil {
		return err
	}

	bus, _, err := openSensorBus(&cfg.Sensor, &cl)
	if err != nil {
		return err
	}
	sensor := ov7670.New(bus, nil)
	if err := sensor.Probe(); err != nil {
		return err
	}
	fmt.Printf("Found %s\n", sensor)
	return nil
}

// pattern cycles full screen fills to check the display wiring.
func pattern(ctx context.Context, cfg *config.Config, delay time.Duration) (err error) {
	var cl closers
	defer func() {
		if cerr := cl.Close(); err == nil {
			err = cerr
		}
	}()
	if err := initHost(cfg, &cl); err != nil {
		return err
	}

	display, err := openDisplay(&cfg.Display, &cl)
	if err != nil {
		return err
	}
	logrus.Info("Calibrating display")
	if err := display.Calibrate(); err != nil {
		return err
	}

	logrus.Info("Entering color loop")
	colors := []color.Color{
		color.RGBA{R: 0xFF, A: 0xFF},
		color.RGBA{G: 0xFF, A: 0xFF},
		color.RGBA{B: 0xFF, A: 0xFF},
	}
	t := time.NewTicker(delay)
	defer t.Stop()
	for i := 0; ; i = (i + 1) % len(colors) {
		if err := display.Fill(colors[i]); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			logrus.Info("Color loop stopped")
			return nil
		case <-t.C:
		}
	}
}
