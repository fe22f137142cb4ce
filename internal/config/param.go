package config

import (
	_ "embed"
	"time"
)

//go:embed param_default.yaml
var ParamDefaultFile []byte

type Param struct {
	Sensor   SensorParam   `yaml:"sensor"`
	Capture  CaptureParam  `yaml:"capture"`
	Display  DisplayParam  `yaml:"display"`
	Pipeline PipelineParam `yaml:"pipeline"`
	Debug    DebugParam    `yaml:"debug"`
}

type SensorParam struct {
	Bus     string        `yaml:"bus"`
	SCL     string        `yaml:"scl"`
	SDA     string        `yaml:"sda"`
	Speed   string        `yaml:"speed"`
	Timeout time.Duration `yaml:"timeout"`
	Verify  bool          `yaml:"verify"`
	Recover bool          `yaml:"recover"`
}

type CaptureParam struct {
	Source   string     `yaml:"source"`
	Width    int        `yaml:"width"`
	Rows     int        `yaml:"rows"`
	MaxPolls int        `yaml:"max_polls"`
	Pins     PinsParam  `yaml:"pins"`
	Gpiod    GpiodParam `yaml:"gpiod"`
}

type PinsParam struct {
	VSync string   `yaml:"vsync"`
	HRef  string   `yaml:"href"`
	PClk  string   `yaml:"pclk"`
	Data  []string `yaml:"data"`
}

type GpiodParam struct {
	Chip  string `yaml:"chip"`
	VSync int    `yaml:"vsync"`
	HRef  int    `yaml:"href"`
	PClk  int    `yaml:"pclk"`
	Data  []int  `yaml:"data"`
}

type DisplayParam struct {
	Port   string `yaml:"port"`
	DC     string `yaml:"dc"`
	RST    string `yaml:"rst"`
	CS     string `yaml:"cs"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type PipelineParam struct {
	Frames     int `yaml:"frames"`
	MaxDesyncs int `yaml:"max_desyncs"`
}

type DebugParam struct {
	Serial string `yaml:"serial"`
	Baud   int    `yaml:"baud"`
}
