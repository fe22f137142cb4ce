// Package config loads the campipe parameters from a YAML file in the config
// folder, creating it with defaults on first run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

const paramFilename = "param.yaml"

type Config struct {
	ConfigDir string
	DebugMode bool

	*Param
}

// Load reads the param file of configDir. Keys missing from the file keep
// their default value.
func Load(configDir string, debugMode bool) (*Config, error) {
	config := &Config{
		ConfigDir: configDir,
		DebugMode: debugMode,
		Param:     &Param{},
	}

	// Check configuration folder
	if _, err := os.Stat(configDir); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: unable to access config folder %s: %w", configDir, err)
		}
		logrus.Printf("Creation of config folder: %s", configDir)
		if err := os.MkdirAll(configDir, 0770); err != nil {
			return nil, fmt.Errorf("config: unable to create config folder: %w", err)
		}
	}

	if err := yaml.Unmarshal(ParamDefaultFile, config.Param); err != nil {
		return nil, fmt.Errorf("config: unable to interpret default param file: %w", err)
	}

	// Open param file
	rawConfig, err := os.ReadFile(config.ParamFilename())
	switch {
	case err == nil:
		if err := yaml.Unmarshal(rawConfig, config.Param); err != nil {
			return nil, fmt.Errorf("config: unable to interpret %s: %w", config.ParamFilename(), err)
		}
	case errors.Is(err, os.ErrNotExist):
		logrus.Infof("Create default param file")
		if err := config.SaveParam(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("config: unable to read param file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) ParamFilename() string {
	return filepath.Join(c.ConfigDir, paramFilename)
}

func (c *Config) SaveParam() error {
	logrus.Debugf("Save param file: %s", c.ParamFilename())
	rawConfig, err := yaml.Marshal(c.Param)
	if err != nil {
		return fmt.Errorf("config: unable to serialize param file: %w", err)
	}
	if err := os.WriteFile(c.ParamFilename(), rawConfig, 0660); err != nil {
		return fmt.Errorf("config: unable to save param file: %w", err)
	}
	return nil
}

// Validate reports the first inconsistent parameter.
func (p *Param) Validate() error {
	s := p.Sensor
	if s.Bus == "" && (s.SCL == "" || s.SDA == "") {
		return errors.New("config: sensor.scl and sensor.sda are required without sensor.bus")
	}
	if _, err := s.Frequency(); err != nil {
		return err
	}
	if s.Timeout <= 0 {
		return errors.New("config: sensor.timeout must be positive")
	}

	c := p.Capture
	if c.Width <= 0 || c.Rows <= 0 {
		return fmt.Errorf("config: invalid capture size %dx%d", c.Width, c.Rows)
	}
	switch c.Source {
	case "gpio":
		if c.Pins.VSync == "" || c.Pins.HRef == "" || c.Pins.PClk == "" || len(c.Pins.Data) != 8 {
			return errors.New("config: capture.pins needs vsync, href, pclk and 8 data pins")
		}
	case "gpiod":
		if c.Gpiod.Chip == "" || len(c.Gpiod.Data) != 8 {
			return errors.New("config: capture.gpiod needs a chip and 8 data lines")
		}
	default:
		return fmt.Errorf("config: unknown capture.source %q", c.Source)
	}

	d := p.Display
	if d.DC == "" {
		return errors.New("config: display.dc is required")
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("config: invalid display size %dx%d", d.Width, d.Height)
	}
	// Each captured row is drawn on its own display column.
	if c.Rows > d.Width {
		return fmt.Errorf("config: capture.rows %d exceeds display.width %d", c.Rows, d.Width)
	}

	if p.Debug.Serial != "" && p.Debug.Baud <= 0 {
		return errors.New("config: debug.baud must be positive")
	}
	return nil
}

// Frequency returns the parsed sensor bus speed.
func (s *SensorParam) Frequency() (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(s.Speed); err != nil {
		return 0, fmt.Errorf("config: invalid sensor.speed %q: %w", s.Speed, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("config: invalid sensor.speed %q", s.Speed)
	}
	return f, nil
}
