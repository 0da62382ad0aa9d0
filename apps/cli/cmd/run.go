package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tstit/packages/core/config"
	"github.com/abdul-hamid-achik/tstit/packages/core/env"
	"github.com/abdul-hamid-achik/tstit/packages/core/plan"
	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
	"github.com/abdul-hamid-achik/tstit/packages/db"
	"github.com/abdul-hamid-achik/tstit/packages/export/metrics"
	"github.com/abdul-hamid-achik/tstit/packages/http"
	"github.com/abdul-hamid-achik/tstit/packages/notify"
	"github.com/abdul-hamid-achik/tstit/packages/output"
)

const (
	envVerbose      = "TSTIT_VERBOSE"
	envConfig       = "TSTIT_CONFIG"
	envURL          = "TSTIT_URL"
	envToken        = "TSTIT_TKN"
	envAuthHeader   = "TSTIT_AUTH_HEADER"
	envEnvFile      = "TSTIT_ENV_FILE"
	envTimeout      = "TSTIT_TIMEOUT"
	envInsecure     = "TSTIT_INSECURE"
	envProxy        = "TSTIT_PROXY"
	envEnvelope     = "TSTIT_ENVELOPE"
	envRate         = "TSTIT_RATE"
	envMaxRedirects = "TSTIT_MAX_REDIRECTS"
	envOutput       = "TSTIT_OUTPUT"
	envOutputFile   = "TSTIT_OUTPUT_FILE"
	envNoColor      = "TSTIT_NO_COLOR"
	envHistory      = "TSTIT_HISTORY"
	envMetrics      = "TSTIT_METRICS"
	envMetricsFile  = "TSTIT_METRICS_FILE"
	envOTLPEndpoint = "TSTIT_OTEL_ENDPOINT"
	envOTLPInsecure = "TSTIT_OTEL_INSECURE"
)

type runOptions struct {
	fs afero.Fs

	verbose    bool
	configPath string
	baseURL    string
	token      string
	authHeader string
	envFile    string
	timeout    string
	insecure   bool
	proxy      string
	envelope   bool
	rate       float64
	redirects  int
	output     string
	outputFile string
	noColor    bool
	history    string
	watch      bool

	// Metrics
	metrics      string
	metricsFile  string
	otlpEndpoint string
	otlpInsecure bool

	// Notifications
	notify       string
	notifyOn     string
	slackWebhook string
	slackChannel string
	teamsWebhook string
}

func (o *runOptions) addFlags(c *cobra.Command) {
	f := c.Flags()

	// Core flags
	f.BoolVarP(&o.verbose, "verbose", "v", getEnvBool(envVerbose, false), "Debug logging and request/response details (env: TSTIT_VERBOSE)")
	f.StringVar(&o.configPath, "config", getEnvString(envConfig, ""), "Path to config file (env: TSTIT_CONFIG)")
	f.StringVar(&o.baseURL, "url", getEnvString(envURL, ""), "Base URL of the API under test (env: TSTIT_URL)")
	f.StringVar(&o.token, "token", getEnvString(envToken, ""), "Auth token sent on every request (env: TSTIT_TKN)")
	f.StringVar(&o.authHeader, "auth-header", getEnvString(envAuthHeader, ""), "Header carrying the auth token (default Authorization) (env: TSTIT_AUTH_HEADER)")
	f.StringVar(&o.envFile, "env-file", getEnvString(envEnvFile, ""), "Path to .env file for variable interpolation (env: TSTIT_ENV_FILE)")
	f.BoolVarP(&o.watch, "watch", "w", false, "Watch testplans for changes and re-run them")

	// Output flags
	f.StringVarP(&o.output, "output", "o", getEnvString(envOutput, ""), "Output format: "+strings.Join(output.Formats(), ", ")+" (env: TSTIT_OUTPUT)")
	f.StringVar(&o.outputFile, "output-file", getEnvString(envOutputFile, ""), "Write output to file (default: stdout) (env: TSTIT_OUTPUT_FILE)")
	f.BoolVar(&o.noColor, "no-color", getEnvBool(envNoColor, false), "Disable colored output (env: TSTIT_NO_COLOR)")
	f.StringVar(&o.history, "history", getEnvString(envHistory, ""), "SQLite run-history database (env: TSTIT_HISTORY)")

	// Execution flags
	f.StringVar(&o.timeout, "timeout", getEnvString(envTimeout, ""), "Request timeout (e.g., 30s, 1m) (env: TSTIT_TIMEOUT)")
	f.BoolVar(&o.envelope, "envelope", getEnvBool(envEnvelope, false), "Treat responses as {\"code\": 0, \"data\": ...} envelopes (env: TSTIT_ENVELOPE)")
	f.Float64Var(&o.rate, "rate", getEnvFloat(envRate, 0), "Maximum requests per second, 0 for unlimited (env: TSTIT_RATE)")

	// Network flags
	f.StringVar(&o.proxy, "proxy", getEnvString(envProxy, ""), "Proxy URL for HTTP requests (env: TSTIT_PROXY)")
	f.IntVar(&o.redirects, "max-redirects", getEnvInt(envMaxRedirects, 0), "Maximum redirects to follow, 0 for the default of 10 (env: TSTIT_MAX_REDIRECTS)")
	f.BoolVarP(&o.insecure, "insecure", "k", getEnvBool(envInsecure, false), "Disable SSL certificate validation (env: TSTIT_INSECURE)")

	// Metrics flags
	f.StringVar(&o.metrics, "metrics", getEnvString(envMetrics, ""), "Metrics export format: json, otlp (comma-separated) (env: TSTIT_METRICS)")
	f.StringVar(&o.metricsFile, "metrics-file", getEnvString(envMetricsFile, ""), "Output file for JSON metrics (env: TSTIT_METRICS_FILE)")
	f.StringVar(&o.otlpEndpoint, "otlp-endpoint", getEnvString(envOTLPEndpoint, ""), "OTLP gRPC endpoint for metrics (env: TSTIT_OTEL_ENDPOINT)")
	f.BoolVar(&o.otlpInsecure, "otlp-insecure", getEnvBool(envOTLPInsecure, false), "Use plaintext gRPC for OTLP (env: TSTIT_OTEL_INSECURE)")

	// Notification flags
	f.StringVar(&o.notify, "notify", getEnvString("TSTIT_NOTIFY", ""), "Notification service: slack, teams (env: TSTIT_NOTIFY)")
	f.StringVar(&o.notifyOn, "notify-on", getEnvString("TSTIT_NOTIFY_ON", "failure"), "When to notify: always, failure, success, recovery (env: TSTIT_NOTIFY_ON)")
	f.StringVar(&o.slackWebhook, "slack-webhook", getEnvString("SLACK_WEBHOOK", ""), "Slack webhook URL (env: SLACK_WEBHOOK)")
	f.StringVar(&o.slackChannel, "slack-channel", getEnvString("SLACK_CHANNEL", ""), "Slack channel override (env: SLACK_CHANNEL)")
	f.StringVar(&o.teamsWebhook, "teams-webhook", getEnvString("TEAMS_WEBHOOK", ""), "Microsoft Teams webhook URL (env: TEAMS_WEBHOOK)")
}

// isSet reports whether a boolean setting was given explicitly, on the
// command line or through its environment variable.
func isSet(c *cobra.Command, flag, envKey string) bool {
	return c.Flags().Changed(flag) || os.Getenv(envKey) != ""
}

func (o *runOptions) run(c *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageError("no testplan paths provided")
	}

	cfg, err := o.resolveConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context()
	logger := newLogger(c.ErrOrStderr(), o.verbose)

	s, err := o.openSinks(ctx, c, cfg)
	if err != nil {
		return err
	}
	defer s.close(ctx, c.ErrOrStderr())

	result, err := o.runPlans(ctx, c, cfg, args, s, logger)
	if err != nil {
		return err
	}

	if o.watch {
		return o.watchPlans(ctx, c, cfg, args, s, logger)
	}
	if !result.Success() {
		return withExitCode(ExitTestFailure, nil)
	}
	return nil
}

// resolveConfig merges the config file with flags and environment
// variables, which take precedence. Base URL and token are fixed for the
// rest of the process.
func (o *runOptions) resolveConfig(c *cobra.Command) (*config.Config, error) {
	fileCfg, err := config.Load(o.fs, o.configPath)
	if err != nil {
		return nil, configError(err)
	}

	overlay := &config.Config{
		BaseURL:      o.baseURL,
		Token:        o.token,
		AuthHeader:   o.authHeader,
		Proxy:        o.proxy,
		RateLimit:    o.rate,
		MaxRedirects: o.redirects,
		History:      o.history,
		Output:       o.output,
		OTLPEndpoint: o.otlpEndpoint,
	}
	if o.timeout != "" {
		d, err := time.ParseDuration(o.timeout)
		if err != nil {
			return nil, configError(fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", o.timeout, err))
		}
		overlay.Timeout = d
	}
	if o.rate < 0 {
		return nil, configError(fmt.Errorf("invalid rate %g: must not be negative", o.rate))
	}
	if o.redirects < 0 {
		return nil, configError(fmt.Errorf("invalid max redirects %d: must not be negative", o.redirects))
	}
	if o.metrics != "" {
		overlay.Metrics = splitList(o.metrics)
	}
	if isSet(c, "insecure", envInsecure) {
		overlay.ValidateSSL = config.BoolPtr(!o.insecure)
	}
	if isSet(c, "envelope", envEnvelope) {
		overlay.Envelope = config.BoolPtr(o.envelope)
	}
	if isSet(c, "no-color", envNoColor) {
		overlay.NoColor = config.BoolPtr(o.noColor)
	}

	cfg := fileCfg.Merge(overlay)
	if err := cfg.Validate(); err != nil {
		return nil, configError(&config.Error{Err: err})
	}
	if cfg.BaseURL == "" {
		return nil, configError(errors.New("base URL is required (set --url, TSTIT_URL or baseURL in the config file)"))
	}
	if err := http.ValidateURL(cfg.BaseURL); err != nil {
		return nil, configError(fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err))
	}
	return cfg, nil
}

// seedStore builds the Variable Store of one run. Later sources win.
func (o *runOptions) seedStore(cfg *config.Config) (*env.Store, error) {
	sources := []map[string]string{cfg.Variables}
	if o.envFile != "" {
		vars, err := env.LoadDotEnv(o.fs, o.envFile)
		if err != nil {
			return nil, configError(err)
		}
		sources = append(sources, vars)
	}
	sources = append(sources, env.SystemVariables(""))

	resolved := map[string]string{envURL: cfg.BaseURL}
	if cfg.Token != "" {
		resolved[envToken] = cfg.Token
	}
	sources = append(sources, resolved)

	store := env.NewStore()
	store.Seed(env.Merge(sources...))
	return store, nil
}

func newClient(cfg *config.Config) *http.Client {
	opts := []http.ClientOption{
		http.WithTimeout(cfg.Timeout),
		http.WithFollowRedirects(cfg.GetFollowRedirects()),
		http.WithValidateSSL(cfg.GetValidateSSL()),
		http.WithAuthToken(cfg.AuthHeader, cfg.Token),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, http.WithDefaultHeaders(cfg.Headers))
	}
	if cfg.Proxy != "" {
		opts = append(opts, http.WithProxy(cfg.Proxy))
	}
	if cfg.MaxRedirects > 0 {
		opts = append(opts, http.WithMaxRedirects(cfg.MaxRedirects))
	}
	return http.NewClient(opts...)
}

// openReport returns the destination of the report and its closer.
func (o *runOptions) openReport(c *cobra.Command, cfg *config.Config) (io.Writer, func() error, error) {
	if o.outputFile == "" {
		if output.IsBinary(cfg.Output) {
			return nil, nil, configError(fmt.Errorf("%s output requires --output-file", cfg.Output))
		}
		return c.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := o.fs.Create(o.outputFile)
	if err != nil {
		return nil, nil, configError(fmt.Errorf("cannot create output file: %w", err))
	}
	return f, f.Close, nil
}

// runPlans loads the testplans and runs them once with a fresh Variable
// Store.
func (o *runOptions) runPlans(ctx context.Context, c *cobra.Command, cfg *config.Config, paths []string, s *sinks, logger *slog.Logger) (*runner.RunResult, error) {
	w, closeReport, err := o.openReport(c, cfg)
	if err != nil {
		return nil, err
	}
	defer closeReport()

	formatter, err := output.New(cfg.Output, output.Options{
		Writer:  w,
		Verbose: o.verbose,
		NoColor: cfg.GetNoColor(),
	})
	if err != nil {
		return nil, configError(err)
	}

	plans, err := plan.NewLoader(o.fs).Load(paths...)
	if err != nil {
		return nil, loadError(err)
	}
	store, err := o.seedStore(cfg)
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	runnerOpts := []runner.Option{
		runner.WithClient(newClient(cfg)),
		runner.WithObserver(formatter),
		runner.WithLogger(logger),
	}
	collector := s.newCollector(runID)
	if collector != nil {
		runnerOpts = append(runnerOpts, runner.WithObserver(collector))
	}

	formatter.FormatHeader(version)
	r := runner.NewRunner(&runner.Config{
		BaseURL:   cfg.BaseURL,
		Envelope:  cfg.GetEnvelope(),
		RateLimit: cfg.RateLimit,
		RunID:     runID,
	}, store, runnerOpts...)
	result := r.Run(ctx, plans)
	formatter.FormatResult(result)

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(result.Duration); err != nil {
			return nil, configError(fmt.Errorf("error writing output: %w", err))
		}
	}

	s.record(ctx, c.ErrOrStderr(), cfg, collector, result)
	return result, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// sinks are the optional side channels of a run. Their failures are
// warnings and never change the exit code.
type sinks struct {
	exporters []metrics.Exporter
	notifier  *notify.Manager
	history   *db.History
}

func (o *runOptions) openSinks(ctx context.Context, c *cobra.Command, cfg *config.Config) (*sinks, error) {
	s := &sinks{}

	for _, name := range cfg.Metrics {
		switch strings.ToLower(name) {
		case "json":
			jsonOpts := []metrics.JSONOption{metrics.WithJSONFs(o.fs)}
			if o.metricsFile != "" {
				jsonOpts = append(jsonOpts, metrics.WithJSONFile(o.metricsFile))
			} else {
				jsonOpts = append(jsonOpts, metrics.WithJSONWriter(c.OutOrStdout()))
			}
			s.exporters = append(s.exporters, metrics.NewJSONExporter(jsonOpts...))
		case "otlp":
			exp, err := metrics.NewOTLPExporter(ctx, metrics.OTLPConfig{
				Endpoint:       cfg.OTLPEndpoint,
				Insecure:       o.otlpInsecure,
				ServiceVersion: version,
			})
			if err != nil {
				return nil, configError(err)
			}
			s.exporters = append(s.exporters, exp)
		default:
			return nil, configError(fmt.Errorf("unknown metrics format %q (expected json or otlp)", name))
		}
	}

	if o.notify != "" {
		notifyOn, err := notify.ParseNotifyOn(o.notifyOn)
		if err != nil {
			return nil, configError(err)
		}
		var notifiers []notify.Notifier
		for _, service := range splitList(o.notify) {
			switch strings.ToLower(service) {
			case "slack":
				if o.slackWebhook == "" {
					return nil, configError(errors.New("--slack-webhook is required when using --notify slack"))
				}
				slackOpts := []notify.SlackOption{}
				if o.slackChannel != "" {
					slackOpts = append(slackOpts, notify.WithSlackChannel(o.slackChannel))
				}
				notifiers = append(notifiers, notify.NewSlackNotifier(o.slackWebhook, slackOpts...))
			case "teams":
				if o.teamsWebhook == "" {
					return nil, configError(errors.New("--teams-webhook is required when using --notify teams"))
				}
				notifiers = append(notifiers, notify.NewTeamsNotifier(o.teamsWebhook))
			default:
				return nil, configError(fmt.Errorf("unknown notification service %q (expected slack or teams)", service))
			}
		}
		s.notifier = notify.NewManager(notifyOn, notifiers...)
	}

	if cfg.History != "" {
		h, err := db.Open(cfg.History)
		if err != nil {
			fmt.Fprintf(c.ErrOrStderr(), "warning: run history disabled: %v\n", err)
		} else {
			s.history = h
		}
	}
	return s, nil
}

// newCollector returns a metrics collector for one run, or nil when no
// exporter is configured.
func (s *sinks) newCollector(runID uuid.UUID) *metrics.Collector {
	if len(s.exporters) == 0 {
		return nil
	}
	collector := metrics.NewCollector(s.exporters...)
	collector.SetRunID(runID.String())
	return collector
}

func (s *sinks) record(ctx context.Context, stderr io.Writer, cfg *config.Config, collector *metrics.Collector, result *runner.RunResult) {
	if collector != nil {
		if err := collector.Flush(ctx); err != nil {
			fmt.Fprintf(stderr, "warning: failed to export metrics: %v\n", err)
		}
	}
	if s.history != nil {
		if err := s.history.RecordRun(ctx, result); err != nil {
			fmt.Fprintf(stderr, "warning: failed to record run history: %v\n", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, notify.Summarize(result, cfg.BaseURL)); err != nil {
			fmt.Fprintf(stderr, "warning: failed to send notification: %v\n", err)
		}
	}
}

func (s *sinks) close(ctx context.Context, stderr io.Writer) {
	for _, exp := range s.exporters {
		if err := exp.Close(ctx); err != nil {
			fmt.Fprintf(stderr, "warning: failed to close metrics exporter: %v\n", err)
		}
	}
	if s.history != nil {
		_ = s.history.Close()
	}
}
