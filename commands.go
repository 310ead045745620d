package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// cliOptions is state shared by every command
type cliOptions struct {
	configFile   string
	settingsFile string
	interactive  bool

	settings *AppSettings
	logger   *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}
	sf := &scenarioFlags{}

	root := &cobra.Command{
		Use:   "goCompoundForecast",
		Short: "Compound interest forecasts with contributions, tax and inflation",
		Long: `Compound Interest Forecast

Projects an investment period by period under compound interest. Each period
adds any contribution due, accrues interest at the per-period rate, withholds
tax on the interest, and records the balances. Totals, an inflation-adjusted
future value and the full period table can be printed or exported.

The scenario is read from a YAML or TOML file (--config). When that file does
not exist the built-in default scenario is used; "init" writes one to edit.
Any scenario field can be overridden with flags, e.g. --rate 4.5% --years 20.

Frequencies: annually, semiannually, quarterly, monthly, biweekly, weekly, daily`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(cmd, opts, sf, false)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "scenario.yaml", "Scenario file (.yaml or .toml)")
	pf.StringVar(&opts.settingsFile, "settings", "", "Application settings file (YAML); COMPOUND_* environment variables also apply")
	pf.BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for every scenario field")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "console", "Log format: console or json")
	pf.String("export-dir", "exports", "Directory for generated files")
	sf.register(root)

	root.AddCommand(
		newRunCommand(opts),
		newExportCommand(opts),
		newSensitivityCommand(opts),
		newServeCommand(opts),
		newRateCommand(),
		newFrequenciesCommand(),
		newInitCommand(opts),
		newVersionCommand(),
	)
	return root
}

// init loads settings (file, then environment, then flags) and builds the logger
func (o *cliOptions) init(cmd *cobra.Command) error {
	v := newSettingsViper()
	pf := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		keyLogLevel:  "log-level",
		keyLogFormat: "log-format",
		keyExportDir: "export-dir",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return err
		}
	}
	if f := cmd.Flags().Lookup("addr"); f != nil {
		if err := v.BindPFlag(keyAddr, f); err != nil {
			return err
		}
	}

	settings, err := LoadSettings(v, o.settingsFile)
	if err != nil {
		return err
	}
	logger, err := NewLogger(settings.LogLevel, settings.LogFormat)
	if err != nil {
		return err
	}
	o.settings = settings
	o.logger = logger
	return nil
}

// loadScenarioFile returns the scenario to run: interactive answers, the
// --config file, or the built-in default when that file does not exist
func (o *cliOptions) loadScenarioFile(cmd *cobra.Command) (*ScenarioFile, error) {
	file, err := LoadScenarioFile(o.configFile)
	switch {
	case err == nil:
		o.logger.Debug("loaded scenario file", zap.String("path", o.configFile))
	case errors.Is(err, fs.ErrNotExist):
		o.logger.Info("scenario file not found, using built-in default", zap.String("path", o.configFile))
		if file, err = LoadDefaultScenarioFile(); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if o.interactive {
		return NewInteractiveScenarioBuilder(cmd.InOrStdin(), cmd.OutOrStdout(), file).Build()
	}
	return file, nil
}

// scenarioFlags override individual fields of the loaded scenario
type scenarioFlags struct {
	initValue    string
	rate         string
	years        float64
	compounding  string
	contribution string
	contribFreq  string
	timing       string
	tax          string
	inflation    string
	convention   string
	startDate    string
}

func (sf *scenarioFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&sf.initValue, "init-value", "", "Initial investment (e.g. 10000 or 10k)")
	f.StringVar(&sf.rate, "rate", "", "Annual interest rate (e.g. 5% or 0.05)")
	f.Float64Var(&sf.years, "years", 0, "Horizon in years")
	f.StringVar(&sf.compounding, "compounding", "", "Compounding frequency")
	f.StringVar(&sf.contribution, "contribution", "", "Amount per contribution")
	f.StringVar(&sf.contribFreq, "contribution-frequency", "", "Contribution frequency (defaults to compounding)")
	f.StringVar(&sf.timing, "timing", "", "Contribution timing: start or end")
	f.StringVar(&sf.tax, "tax", "", "Tax rate on interest (e.g. 25%)")
	f.StringVar(&sf.inflation, "inflation", "", "Inflation rate for today's-money value (e.g. 2%)")
	f.StringVar(&sf.convention, "convention", "", "Rate convention: nominal or effective")
	f.StringVar(&sf.startDate, "start-date", "", "Start date (YYYY-MM-DD) to date each period")
}

// apply copies every flag the user set onto file
func (sf *scenarioFlags) apply(cmd *cobra.Command, file *ScenarioFile) error {
	changed := cmd.Flags().Changed
	cfg := &file.Scenario

	parseRate := func(name, value string, dst *float64) error {
		v, err := parsePercentOrDecimal(value)
		if err != nil {
			return invalidParameter(name, "%q is not a rate", value)
		}
		*dst = v
		return nil
	}
	parseAmount := func(name, value string, dst *float64) error {
		v, err := parseMoney(value)
		if err != nil {
			return invalidParameter(name, "%q is not an amount", value)
		}
		*dst = v
		return nil
	}

	if changed("init-value") {
		if err := parseAmount("init_value", sf.initValue, &cfg.InitValue); err != nil {
			return err
		}
	}
	if changed("rate") {
		if err := parseRate("interest_rate", sf.rate, &cfg.InterestRate); err != nil {
			return err
		}
	}
	if changed("years") {
		cfg.Years = sf.years
	}
	if changed("compounding") {
		cfg.CompoundingFrequency = sf.compounding
	}
	if changed("contribution") {
		if err := parseAmount("contribution", sf.contribution, &cfg.Contribution); err != nil {
			return err
		}
	}
	if changed("contribution-frequency") {
		cfg.ContributionFrequency = sf.contribFreq
	}
	if changed("timing") {
		cfg.ContributionTiming = sf.timing
	}
	if changed("tax") {
		if err := parseRate("tax_rate", sf.tax, &cfg.TaxRate); err != nil {
			return err
		}
	}
	if changed("inflation") {
		if err := parseRate("inflation", sf.inflation, &file.Inflation); err != nil {
			return err
		}
	}
	if changed("convention") {
		cfg.RateConvention = sf.convention
	}
	if changed("start-date") {
		cfg.StartDate = sf.startDate
	}
	return nil
}

// prepareScenario loads the scenario file and applies flag overrides
func prepareScenario(cmd *cobra.Command, opts *cliOptions, sf *scenarioFlags) (*ScenarioFile, error) {
	file, err := opts.loadScenarioFile(cmd)
	if err != nil {
		return nil, err
	}
	if err := sf.apply(cmd, file); err != nil {
		return nil, err
	}
	return file, nil
}

func runScenarioFile(opts *cliOptions, file *ScenarioFile) (*ScenarioResult, error) {
	result, err := Run(file.Scenario)
	if err != nil {
		opts.logger.Debug("scenario rejected", zap.Error(err))
		return nil, err
	}
	opts.logger.Debug("scenario computed", scenarioFields(result.Scenario())...)
	return result, nil
}

func runForecast(cmd *cobra.Command, opts *cliOptions, sf *scenarioFlags, details bool) error {
	file, err := prepareScenario(cmd, opts, sf)
	if err != nil {
		return err
	}
	result, err := runScenarioFile(opts, file)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, result.Scenario())
	if details {
		PrintBreakdown(out, result)
		fmt.Fprintln(out)
	}
	return PrintSummary(out, result, file.Inflation)
}

func newRunCommand(opts *cliOptions) *cobra.Command {
	sf := &scenarioFlags{}
	var details bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Print the forecast summary (and the period table with --details)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForecast(cmd, opts, sf, details)
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&details, "details", false, "Show the period-by-period breakdown")
	return cmd
}

func newExportCommand(opts *cliOptions) *cobra.Command {
	sf := &scenarioFlags{}
	var formatName, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the forecast as csv, xlsx, json, pdf or html",
		Long: `Write the forecast to a file. The format comes from --format, or from the
extension of --out. Without --out the file goes to the export directory with a
timestamped name; --out - writes to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveExportFormat(formatName, outPath)
			if err != nil {
				return err
			}
			file, err := prepareScenario(cmd, opts, sf)
			if err != nil {
				return err
			}
			result, err := runScenarioFile(opts, file)
			if err != nil {
				return err
			}

			if outPath == "-" {
				return Export(cmd.OutOrStdout(), result, format, file.Inflation)
			}
			if outPath == "" {
				if err := os.MkdirAll(opts.settings.ExportDir, 0755); err != nil {
					return err
				}
				outPath = filepath.Join(opts.settings.ExportDir,
					fmt.Sprintf("compound-forecast-%s.%s", time.Now().Format("2006-01-02-150405"), format))
			}
			if err := writeExportFile(outPath, result, format, file.Inflation); err != nil {
				return err
			}
			opts.logger.Info("export written", zap.String("path", outPath), zap.Stringer("format", format))
			fmt.Fprintf(cmd.OutOrStdout(), "%s saved to %s\n", strings.ToUpper(format.String()), outPath)
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().StringVarP(&formatName, "format", "f", "", "csv, xlsx, json, pdf or html")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file, or - for standard output")
	return cmd
}

// resolveExportFormat prefers an explicit format, then the output extension, then csv
func resolveExportFormat(formatName, outPath string) (ExportFormat, error) {
	if formatName != "" {
		return ParseExportFormat(formatName)
	}
	if ext := filepath.Ext(outPath); ext != "" && outPath != "-" {
		return ParseExportFormat(ext)
	}
	return ExportCSV, nil
}

func writeExportFile(path string, result *ScenarioResult, format ExportFormat, inflation float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Export(f, result, format, inflation); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newSensitivityCommand(opts *cliOptions) *cobra.Command {
	sf := &scenarioFlags{}
	var html bool
	var sens SensitivityConfig
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Future value across a grid of interest rates and tax rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := prepareScenario(cmd, opts, sf)
			if err != nil {
				return err
			}
			overrideSensitivity(cmd, &file.Sensitivity, sens)

			analysis, err := RunSensitivityAnalysis(file.Scenario, file.Inflation, file.Sensitivity)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			PrintSensitivityMatrix(out, analysis, false)
			if analysis.Inflation != 0 {
				PrintSensitivityMatrix(out, analysis, true)
			}
			if html {
				path, err := GenerateSensitivityReport(analysis, opts.settings.ExportDir)
				if err != nil {
					return err
				}
				opts.logger.Info("sensitivity report written", zap.String("path", path))
				fmt.Fprintf(out, "\nHTML report saved to %s\n", path)
			}
			return nil
		},
	}
	sf.register(cmd)
	f := cmd.Flags()
	f.BoolVar(&html, "html", false, "Also write an HTML report to the export directory")
	f.Float64Var(&sens.RateMin, "rate-min", 0, "Lowest interest rate (decimal)")
	f.Float64Var(&sens.RateMax, "rate-max", 0, "Highest interest rate (decimal)")
	f.Float64Var(&sens.RateStep, "rate-step", 0, "Interest rate step (decimal)")
	f.Float64Var(&sens.TaxMin, "tax-min", 0, "Lowest tax rate (decimal)")
	f.Float64Var(&sens.TaxMax, "tax-max", 0, "Highest tax rate (decimal)")
	f.Float64Var(&sens.TaxStep, "tax-step", 0, "Tax rate step (decimal)")
	return cmd
}

func overrideSensitivity(cmd *cobra.Command, dst *SensitivityConfig, src SensitivityConfig) {
	changed := cmd.Flags().Changed
	if changed("rate-min") {
		dst.RateMin = src.RateMin
	}
	if changed("rate-max") {
		dst.RateMax = src.RateMax
	}
	if changed("rate-step") {
		dst.RateStep = src.RateStep
	}
	if changed("tax-min") {
		dst.TaxMin = src.TaxMin
	}
	if changed("tax-max") {
		dst.TaxMax = src.TaxMax
	}
	if changed("tax-step") {
		dst.TaxStep = src.TaxStep
	}
}

func newServeCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the forecast JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := LoadScenarioFile(opts.configFile)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
				file = nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return NewWebServer(file, opts.settings.Addr, opts.logger).Start(ctx)
		},
	}
	cmd.Flags().String("addr", "localhost:8080", "Listen address (use :0 for any free port)")
	return cmd
}

func newRateCommand() *cobra.Command {
	var basis string
	cmd := &cobra.Command{
		Use:   "rate RATE",
		Short: "Convert a rate quoted per period into an effective annual rate",
		Example: `  goCompoundForecast rate 1% --basis p.m.     # 12.68%
  goCompoundForecast rate 0.02 --basis p.q.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := parsePercentOrDecimal(args[0])
			if err != nil {
				return invalidParameter("rate", "%q is not a rate", args[0])
			}
			annual, err := ToAnnualRate(rate, basis)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s p.a.\n", FormatPercent(rate), basis, FormatPercent(annual))
			return nil
		},
	}
	cmd.Flags().StringVar(&basis, "basis", "p.a.", "Period the rate is quoted per: "+strings.Join(RateBasisNames(), ", "))
	return cmd
}

func newFrequenciesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "frequencies",
		Short: "List the supported frequencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-14s %16s  %s\n", "Name", "Periods/Year", "Label")
			fmt.Fprintln(out, strings.Repeat("─", 40))
			for _, f := range Frequencies() {
				fmt.Fprintf(out, "%-14s %16s  %s\n", f, strconv.Itoa(f.PeriodsPerYear()), f.Label())
			}
			return nil
		},
	}
}

func newInitCommand(opts *cliOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a scenario file to edit (the default, or your answers with -i)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.configFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configFile)
			}
			file, err := LoadDefaultScenarioFile()
			if err != nil {
				return err
			}
			if opts.interactive {
				if file, err = NewInteractiveScenarioBuilder(cmd.InOrStdin(), cmd.OutOrStdout(), file).Build(); err != nil {
					return err
				}
			}
			if err := SaveScenarioFile(file, opts.configFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scenario saved to %s\n", opts.configFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "goCompoundForecast %s\n", version)
		},
	}
}
