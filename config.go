package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed default-scenario.yaml
var defaultScenarioYAML string

// ScenarioFile is the on-disk form of a forecast: the scenario itself plus
// the settings used to present it
type ScenarioFile struct {
	Scenario    ScenarioConfig    `yaml:"scenario" json:"scenario" toml:"scenario"`
	Inflation   float64           `yaml:"inflation" json:"inflation" toml:"inflation"`
	Sensitivity SensitivityConfig `yaml:"sensitivity" json:"sensitivity" toml:"sensitivity"`
}

// MaxSensitivityCells caps rate steps × tax steps so one grid stays cheap to run
const MaxSensitivityCells = 10000

// SensitivityConfig holds the interest rate and tax rate ranges for the grid
type SensitivityConfig struct {
	RateMin  float64 `yaml:"rate_min" json:"rate_min" toml:"rate_min"`
	RateMax  float64 `yaml:"rate_max" json:"rate_max" toml:"rate_max"`
	TaxMin   float64 `yaml:"tax_min" json:"tax_min" toml:"tax_min"`
	TaxMax   float64 `yaml:"tax_max" json:"tax_max" toml:"tax_max"`
	RateStep float64 `yaml:"rate_step" json:"rate_step" toml:"rate_step"`
	TaxStep  float64 `yaml:"tax_step" json:"tax_step" toml:"tax_step"`
}

// ApplyDefaults fills unset ranges: rates 2%-8% in 1% steps, tax 0%-40% in 10% steps
func (sc *SensitivityConfig) ApplyDefaults() {
	if sc.RateMin == 0 && sc.RateMax == 0 {
		sc.RateMin, sc.RateMax = 0.02, 0.08
	}
	if sc.TaxMin == 0 && sc.TaxMax == 0 {
		sc.TaxMin, sc.TaxMax = 0, 0.40
	}
	if sc.RateStep <= 0 {
		sc.RateStep = 0.01
	}
	if sc.TaxStep <= 0 {
		sc.TaxStep = 0.10
	}
}

// Validate checks the ranges are ordered and the tax range stays within [0,1]
func (sc SensitivityConfig) Validate() error {
	if sc.RateMin > sc.RateMax {
		return invalidParameter("sensitivity.rate_min", "must not exceed rate_max (%v > %v)", sc.RateMin, sc.RateMax)
	}
	if sc.TaxMin > sc.TaxMax {
		return invalidParameter("sensitivity.tax_min", "must not exceed tax_max (%v > %v)", sc.TaxMin, sc.TaxMax)
	}
	if sc.TaxMin < 0 || sc.TaxMax > 1 {
		return invalidParameter("sensitivity.tax_max", "tax range must stay within 0 and 1")
	}
	for _, v := range []float64{sc.RateMin, sc.RateMax, sc.TaxMin, sc.TaxMax, sc.RateStep, sc.TaxStep} {
		if !finite(v) {
			return invalidParameter("sensitivity", "ranges and steps must be finite (got %v)", v)
		}
	}
	if sc.RateStep <= 0 || sc.TaxStep <= 0 {
		return invalidParameter("sensitivity.rate_step", "steps must be positive")
	}
	cells := stepCount(sc.RateMin, sc.RateMax, sc.RateStep) * stepCount(sc.TaxMin, sc.TaxMax, sc.TaxStep)
	if cells > MaxSensitivityCells {
		return invalidParameter("sensitivity", "grid of %.0f cells exceeds the limit of %d; widen the steps", cells, MaxSensitivityCells)
	}
	return nil
}

// stepCount is the number of values buildRateSteps yields for the range.
// It is a float so a tiny step cannot overflow.
func stepCount(min, max, step float64) float64 {
	return math.Floor((max-min+rangeEpsilon)/step) + 1
}

func isTOML(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".toml")
}

// LoadScenarioFile reads a scenario from YAML, or TOML when the file ends in .toml.
// Percentages such as "5%" are accepted in either format.
func LoadScenarioFile(filename string) (*ScenarioFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	file, err := ParseScenarioFile(data, isTOML(filename))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return file, nil
}

// ParseScenarioFile decodes scenario file content
func ParseScenarioFile(data []byte, asTOML bool) (*ScenarioFile, error) {
	content := preprocessPercentages(string(data))

	var file ScenarioFile
	if asTOML {
		if _, err := toml.Decode(content, &file); err != nil {
			return nil, err
		}
		return &file, nil
	}
	if err := yaml.Unmarshal([]byte(content), &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// SaveScenarioFile writes the scenario as YAML with an explanatory header,
// or as TOML when the file ends in .toml
func SaveScenarioFile(file *ScenarioFile, filename string) error {
	var buf bytes.Buffer
	buf.WriteString(scenarioFileHeader)

	if isTOML(filename) {
		if err := toml.NewEncoder(&buf).Encode(file); err != nil {
			return err
		}
	} else {
		data, err := yaml.Marshal(file)
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	return os.WriteFile(filename, buf.Bytes(), 0644)
}

const scenarioFileHeader = `# Compound Interest Forecast scenario
# Generated by goCompoundForecast - feel free to edit manually
#
# VALUE FORMATS
#   Rates: 0.05 = 5% (or write 5%)
#   Frequencies: annually, semiannually, quarterly, monthly, biweekly, weekly, daily
#   Dates: YYYY-MM-DD
#
# RUN COMMANDS
#   goCompoundForecast run --config scenario.yaml --details
#   goCompoundForecast export --format xlsx --out forecast.xlsx
#   goCompoundForecast sensitivity
#   goCompoundForecast serve --addr localhost:8080

`

// LoadDefaultScenarioFile returns the scenario compiled into the binary
func LoadDefaultScenarioFile() (*ScenarioFile, error) {
	return ParseScenarioFile([]byte(defaultScenarioYAML), false)
}

var percentPattern = regexp.MustCompile(`([:=]\s*)(-?\d+\.?\d*)%`)

// preprocessPercentages converts values like "5%" to "0.05"
func preprocessPercentages(content string) string {
	return percentPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := percentPattern.FindStringSubmatch(match)
		if len(parts) < 3 {
			return match
		}
		num, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return match
		}
		return parts[1] + strconv.FormatFloat(num/100.0, 'f', -1, 64)
	})
}
