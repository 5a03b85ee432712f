// Package recce is a TCP connect port scanner. It resolves one target,
// probes a set of ports with bounded concurrency and classifies each port as
// open, filtered, closed or unknown.
package recce

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/time/rate"
)

// AppVersion represents the application version
const AppVersion = "1.2.0"

// Application errors
var (
	ErrUsage        = errors.New("usage error")
	ErrReportFailed = errors.New("report generation failed")
)

const usageText = `Usage: recce [options] host "ports"

Ports are separated by single spaces; ranges are written low-high.
Example: recce -c 128 scanme.example.org "22 80 8000-8100"

Options:
`

// App represents the main application with its dependencies
type App struct {
	Config     *Config
	Logger     *zap.Logger
	Metrics    *Metrics
	Registry   *prometheus.Registry
	Scanner    *Scanner
	Input      *InputHandler
	MetricsSrv *http.Server
	// Progress receives a progress bar during scans when set.
	Progress io.Writer
	out      io.Writer
	bar      *progressbar.ProgressBar
}

// NewApp creates a new application instance
func NewApp(config *Config, logger *zap.Logger, in io.Reader, out io.Writer, opts ...ScannerOption) (*App, error) {
	app := &App{
		Config: config,
		Logger: logger,
		Input:  NewInputHandler(logger, in, out),
		out:    out,
	}

	if config.MetricsEnabled {
		app.Metrics = NewMetrics()
		app.Registry = prometheus.NewRegistry()
		if err := app.Metrics.Register(app.Registry); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		app.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append([]ScannerOption{WithMetrics(app.Metrics)}, opts...)
	}

	opts = append(opts, WithProgress(app.advance), WithTargetResolved(app.announceTarget))

	scanner, err := NewScanner(config, logger, opts...)
	if err != nil {
		return nil, err
	}
	app.Scanner = scanner
	return app, nil
}

func (a *App) announceTarget(host string, tmpl AddressTemplate) {
	if a.Config.ConsoleReport {
		fmt.Fprintf(a.out, "Scanning %s (%s)\n", host, tmpl)
	}
}

func (a *App) advance(uint16, PortState) {
	if a.bar != nil {
		_ = a.bar.Add(1)
	}
}

func (a *App) startProgress(total int) {
	if a.Progress == nil {
		return
	}
	a.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(a.Progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan]Probing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (a *App) stopProgress() {
	if a.bar == nil {
		return
	}
	_ = a.bar.Finish()
	fmt.Fprintln(a.Progress)
	a.bar = nil
}

// Close releases the scanner's resources.
func (a *App) Close() {
	a.Scanner.Close()
}

// -------------- Logging Initialization --------------

// SetupLogger configures and initializes the logger. Logs go to a file under
// the log directory and to stderr so they never mix with the report on stdout.
func SetupLogger(config *Config) (*zap.Logger, error) {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}
	timestamp := time.Now().Format("20060102_150405")
	logFile := filepath.Join(config.LogDir, fmt.Sprintf("recce_log_%s.log", timestamp))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig = encoderConfig
	cfg.OutputPaths = []string{logFile, "stderr"}
	cfg.Level = zap.NewAtomicLevelAt(parseLogLevel(config.LogLevel))
	cfg.Development = config.LogLevel == "debug"

	if config.LogLevel != "debug" {
		cfg.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}

	logger, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	logger = logger.With(
		zap.String("version", AppVersion),
		zap.String("pid", strconv.Itoa(os.Getpid())),
	)
	return logger, nil
}

// parseLogLevel converts a string log level to zapcore.Level
func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// -------------- Main --------------

type cliOptions struct {
	configPath   string
	interactive  bool
	showVersion  bool
	disableCache bool
	concurrency  int
	mode         string
	timeoutMS    int
	minState     string
	output       string
	logLevel     string
	progress     bool
	args         []string
	set          map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{set: make(map[string]bool)}

	fs := flag.NewFlagSet("recce", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usageText)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&opts.interactive, "i", false, "Prompt for target and ports")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.disableCache, "no-cache", false, "Disable resolution caching")
	fs.IntVar(&opts.concurrency, "c", DefaultConcurrency, "Maximum simultaneous probes")
	fs.StringVar(&opts.mode, "mode", ScheduleSliding, "Schedule mode (sliding, batch)")
	fs.IntVar(&opts.timeoutMS, "t", 0, "Per-probe connect timeout in milliseconds (0 = system default)")
	fs.StringVar(&opts.minState, "min-state", "closed", "Least interesting state to report (open, filtered, closed, unknown)")
	fs.StringVar(&opts.output, "output", "", "Report formats to write (csv,json,xml,pdf)")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.BoolVar(&opts.progress, "progress", false, "Show a progress bar on stderr")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	opts.args = fs.Args()
	return opts, nil
}

// apply copies explicitly set flags over the loaded configuration.
func (o *cliOptions) apply(config *Config) {
	if o.disableCache {
		config.EnableCaching = false
	}
	if o.set["c"] {
		config.Concurrency = o.concurrency
	}
	if o.set["mode"] {
		config.ScheduleMode = o.mode
	}
	if o.set["t"] {
		config.ProbeTimeout = o.timeoutMS
	}
	if o.set["min-state"] {
		config.MinState = o.minState
	}
	if o.set["log-level"] {
		config.LogLevel = o.logLevel
	}
	if o.progress {
		config.ShowProgress = true
	}
	if o.output != "" {
		config.ReportFormats = strings.Split(o.output, ",")
	}
	if len(o.args) > 0 {
		config.Target = o.args[0]
	}
	if len(o.args) > 1 {
		config.Ports = strings.Join(o.args[1:], " ")
	}
}

// Run is the entry point for the application. It reads prompts from stdin
// and writes the report to stdout.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "Recce version %s\n", AppVersion)
		return nil
	}

	var config *Config
	if opts.configPath != "" {
		config, err = LoadConfig(opts.configPath)
		if err != nil {
			return NewAppError(err, ErrCodeConfiguration, "failed to load config", "config", "load").WithSource()
		}
	} else {
		config = DefaultConfig()
	}
	opts.apply(config)

	if err := config.Validate(); err != nil {
		return NewAppError(err, ErrCodeConfiguration, "invalid configuration", "config", "validate").WithSource()
	}

	if !opts.interactive && (config.Target == "" || config.Ports == "") {
		fmt.Fprint(stderr, usageText)
		return fmt.Errorf("%w: target and ports are required unless -i is given", ErrUsage)
	}

	logger, err := SetupLogger(config)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer logger.Sync()

	app, err := NewApp(config, logger, stdin, stdout)
	if err != nil {
		return err
	}
	defer app.Close()
	if config.ShowProgress {
		app.Progress = stderr
	}

	logger.Info("Recce starting...",
		zap.String("version", AppVersion),
		zap.Int("concurrency", app.Scanner.Width()),
		zap.String("mode", app.Scanner.Mode()),
	)

	if config.MetricsEnabled {
		srv := app.startMetricsServer(config.MetricsPort, config.MetricsTLS)
		app.MetricsSrv = srv
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("Metrics server shutdown error", zap.Error(err))
			}
		}()
	}

	if err := app.Execute(ctx, opts.interactive); err != nil {
		return err
	}

	if config.MetricsEnabled {
		logger.Info("Scan finished. Serving metrics until interrupted...")
		<-ctx.Done()
	}

	logger.Info("Recce exited cleanly")
	return nil
}

// Execute gathers the target and ports, scans, and renders reports.
func (a *App) Execute(ctx context.Context, interactive bool) error {
	target := a.Config.Target
	spec := a.Config.Ports
	var ports []uint16

	if interactive {
		var err error
		if target == "" {
			if target, err = a.Input.GetTarget(); err != nil {
				a.recordStatus("input", "failure")
				return err
			}
		}
		if spec == "" {
			if spec, ports, err = a.Input.GetPortSpec(); err != nil {
				a.recordStatus("input", "failure")
				return err
			}
		}
		a.recordStatus("input", "success")
	}

	if ports == nil {
		var err error
		if ports, err = ParsePortSpec(spec); err != nil {
			a.Logger.Error("Invalid port specification", zap.String("spec", spec), zap.Error(err))
			a.recordStatus("parse", "failure")
			return err
		}
	}

	a.startProgress(len(dedupPorts(ports)))
	result, err := a.Scanner.Scan(ctx, target, ports)
	a.stopProgress()
	if err != nil {
		return err
	}

	if err := a.generateReports(result); err != nil {
		a.Logger.Error("Report generation failed", zap.Error(err))
		a.recordStatus("report", "failure")
		return fmt.Errorf("%w: %v", ErrReportFailed, err)
	}
	a.recordStatus("report", "success")
	return nil
}

func (a *App) recordStatus(operation, status string) {
	if a.Metrics != nil {
		a.Metrics.OperationStatus.WithLabelValues(operation, status).Inc()
	}
}

// -------------- Metrics server --------------

// startMetricsServer initializes and starts the metrics HTTP server
func (a *App) startMetricsServer(port string, useTLS bool) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           a.metricsHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if useTLS {
		certManager := autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache("certs"),
			HostPolicy: autocert.HostWhitelist(a.Config.MetricsHostname),
		}
		srv.TLSConfig = &tls.Config{
			GetCertificate: certManager.GetCertificate,
			MinVersion:     tls.VersionTLS12,
		}

		go func() {
			a.Logger.Info("Starting TLS metrics server", zap.String("port", port))
			if err := srv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("Metrics server listen failed", zap.Error(err))
			}
		}()
		return srv
	}

	go func() {
		a.Logger.Info("Starting metrics server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("Metrics server listen failed", zap.Error(err))
		}
	}()
	return srv
}

// metricsHandler serves /metrics, /health and /version.
func (a *App) metricsHandler() http.Handler {
	mux := http.NewServeMux()

	var handler http.Handler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
	if a.Config.MetricsAuth {
		handler = basicAuthMiddleware(handler, a.Config.MetricsUsername, a.Config.MetricsPassword)
	}
	handler = rateLimitMiddleware(handler, rate.NewLimiter(5, 10))
	handler = loggerMiddleware(handler, a.Logger)

	mux.Handle("/metrics", handler)
	mux.HandleFunc("/health", healthCheckHandler)
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Recce version %s\n", AppVersion)
	})
	return mux
}

// -------------- HTTP Middleware --------------

// basicAuthMiddleware adds basic authentication to an HTTP handler
func basicAuthMiddleware(next http.Handler, username, password string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != username || pass != password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware adds rate limiting to an HTTP handler
func rateLimitMiddleware(next http.Handler, limiter *rate.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggerMiddleware adds request logging to an HTTP handler
func loggerMiddleware(next http.Handler, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{w, http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// -------------- Report Generation --------------

// generateReports writes every configured report format and the console
// summary.
func (a *App) generateReports(result *ScanResult) error {
	timestamp := result.StartedAt.Format("20060102_150405")

	source, err := os.Hostname()
	if err != nil {
		source = "localhost"
	}
	data := NewReportData(result, a.Config.MinimumState(), source)

	var failed []string
	for _, format := range a.Config.ReportFormats {
		reportFilePath := filepath.Join(a.Config.ReportDir, fmt.Sprintf("recce_report_%s.%s", timestamp, format))

		var err error
		switch format {
		case "csv":
			err = WriteCSVReport(data, reportFilePath)
		case "pdf":
			err = WritePDFReport(data, reportFilePath)
		case "json":
			err = WriteJSONReport(data, reportFilePath)
		case "xml":
			err = WriteXMLReport(data, reportFilePath)
		default:
			a.Logger.Warn("Unsupported report format", zap.String("format", format))
			continue
		}

		if err != nil {
			a.Logger.Error("Failed to write report",
				zap.String("format", format),
				zap.String("file", reportFilePath),
				zap.Error(err),
			)
			failed = append(failed, format)
			continue
		}
		a.Logger.Info("Report generated successfully",
			zap.String("format", format),
			zap.String("file", reportFilePath),
		)
	}

	if a.Config.ConsoleReport {
		PrintConsoleReport(a.out, data)
	}

	if len(failed) > 0 {
		return fmt.Errorf("formats %s could not be written", strings.Join(failed, ", "))
	}
	return nil
}
