package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildDate = "unknown"
)

var (
	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

// runOptions holds the flags shared by the root command and `run`
type runOptions struct {
	profile         string
	theme           string
	craziness       int
	count           int
	maxCritique     int
	outDir          string
	provider        string
	personas        string
	parallel        int
	webCheck        bool
	noWebCheck      bool
	dedupeThreshold float64
	markdown        bool
	summary         bool
	noHistory       bool
	noTUI           bool
}

func addRunFlags(cmd *cobra.Command, o *runOptions) {
	f := cmd.Flags()
	f.StringVarP(&o.profile, "profile", "p", "", "Profile: "+strings.Join(ProfileNames(), ", "))
	f.StringVarP(&o.theme, "theme", "t", "", "Theme for the names (prompted when missing)")
	f.IntVarP(&o.craziness, "craziness", "c", 0, "Craziness level 1-100 (crazy profile)")
	f.IntVarP(&o.count, "count", "n", 0, "Names per batch (0 = profile default)")
	f.IntVar(&o.maxCritique, "max-critique", 0, "Maximum names sent to the critics (0 = profile default)")
	f.StringVarP(&o.outDir, "out", "o", "", "Directory for the HTML report")
	f.StringVar(&o.provider, "provider", "", "LLM provider: ollama, openai, anthropic, gemini, bedrock")
	f.StringVar(&o.personas, "personas", "", "YAML file overriding the critic roster")
	f.IntVar(&o.parallel, "parallel", 0, "Concurrent critic calls per name")
	f.BoolVar(&o.webCheck, "web-check", false, "Run the Google Custom Search availability check even when the profile skips it")
	f.BoolVar(&o.noWebCheck, "no-web-check", false, "Skip the Google Custom Search availability check")
	f.Float64Var(&o.dedupeThreshold, "dedupe-threshold", 0, "Cosine similarity for near-duplicate names (0 = off)")
	f.BoolVar(&o.markdown, "markdown", false, "Also write a Markdown summary next to the report")
	f.BoolVar(&o.summary, "summary", false, "Print a rendered Markdown summary when done")
	f.BoolVar(&o.noHistory, "no-history", false, "Do not record the run in the history database")
	f.BoolVar(&o.noTUI, "no-tui", false, "Use plain line prompts instead of the interactive form")
}

func newRootCmd() *cobra.Command {
	rootOpts := &runOptions{}
	root := &cobra.Command{
		Use:   "namecritic",
		Short: "Generate brand names and have a panel of AI critics review them",
		Long: `namecritic generates candidate brand names for a theme, screens them with a
web search, has a panel of persona critics score each one, and writes an HTML report.

Running without a subcommand is the same as 'namecritic run'.

Environment Variables:
  NAMECRITIC_PROVIDER       ollama (default), openai, anthropic, gemini, bedrock
  NAMECRITIC_API_KEY        API key for hosted providers
  OLLAMA_HOST               Ollama server (default: http://localhost:11434)
  GOOGLE_API_KEY            Custom Search API key for the web check
  GOOGLE_CSE_ID             Custom Search engine id for the web check
  AWS_REGION                AWS region for Bedrock (default: us-east-1)
  LLMGUARD_URL              Optional llm-guard server that scans the theme`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = NewLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNames(cmd, rootOpts)
		},
	}
	addRunFlags(root, rootOpts)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")

	root.AddCommand(newRunCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newPersonasCmd())
	root.AddCommand(newModelsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate, screen, critique and rank names for a theme",
		Example: `  namecritic run --theme "sustainable coffee roastery"
  namecritic run --profile crazy --craziness 80 --summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNames(cmd, o)
		},
	}
	addRunFlags(cmd, o)
	return cmd
}

// interactive reports whether the form can be shown
func interactive(o *runOptions) bool {
	return !o.noTUI && isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

// runNames resolves the run inputs, wires the pipeline and runs it
func runNames(cmd *cobra.Command, o *runOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	out := cmd.OutOrStdout()

	cfg := LoadConfig()
	if o.provider != "" {
		cfg.Provider = ParseProviderType(o.provider)
	}

	profileName := o.profile
	if profileName == "" {
		profileName = cfg.Settings.Generation.Profile
	}
	if profileName == "" {
		profileName = ProfileEngine
	}
	profile, err := LookupProfile(profileName)
	if err != nil {
		return err
	}

	crazinessSet := cmd.Flags().Changed("craziness")
	if crazinessSet && (o.craziness < MinCraziness || o.craziness > MaxCraziness) {
		return ErrCrazinessRange(o.craziness)
	}

	theme, craziness, err := askRunInputs(o, profile, cfg.Theme, crazinessSet)
	if err != nil {
		return err
	}
	if theme == "" {
		return nil // cancelled
	}

	guard := NewLLMGuardClient(cfg.LLMGuardURL)
	theme, err = guard.CheckTheme(ctx, theme)
	if err != nil {
		return err
	}

	provider, err := NewProvider(ctx, cfg.ProviderConfig())
	if err != nil {
		return err
	}

	roster := BuiltinRoster(profile.Name)
	if o.personas != "" {
		roster, err = LoadRoster(o.personas, roster)
		if err != nil {
			return err
		}
	}

	log := logger.With(zap.String("provider", provider.Name()))
	tokens := NewTokenTracker(cfg.MaxTotalTokens)
	reporter := NewConsoleReporter(out, cfg.Theme, tokens)
	defer reporter.Close()

	printBanner(out, cfg.Theme, cfg.Provider, profile, theme, craziness)

	var wordBank *WordBank
	if profile.UseSeeds {
		wordBank, err = LoadWordBank(cfg.WordNetDir, profile.WordBank)
		if err != nil {
			log.Warn("word bank unavailable", zap.Error(err))
			wordBank = NewWordBank(WordBankMissing, profile.WordBank.Missing, profile.WordBank.Placeholder)
		}
		if wordBank.Source != WordBankWordNet {
			reporter.Warn("WordNet not found; using a small built-in word list. Run 'namecritic models pull' to install it.")
		}
	}

	checker := newChecker(cfg, profile, o, log)

	threshold := cfg.DedupeThreshold
	if cmd.Flags().Changed("dedupe-threshold") {
		threshold = o.dedupeThreshold
	}
	var embedder *Embedder
	if threshold > 0 {
		ecfg := EmbedderConfig{Logger: log}
		if dir, err := ModelDir(); err == nil {
			ecfg.ModelDir = dir
		}
		if oc, ok := provider.(*OllamaClient); ok {
			ecfg.Remote = oc
			ecfg.RemoteModel = cfg.Models.Embedding
		}
		embedder = NewEmbedder(ecfg)
		defer func() { _ = embedder.Close() }()
	}

	var store RunStore
	if !o.noHistory && cfg.HistoryDB != "" {
		s, err := OpenStore(cfg.HistoryDB)
		if err != nil {
			reporter.Warn(fmt.Sprintf("History disabled: %v", err))
		} else {
			defer func() { _ = s.Close() }()
			store = s
		}
	}

	pipeline := NewPipeline(PipelineConfig{
		Provider:  provider,
		Profile:   profile,
		Roster:    roster,
		Checker:   checker,
		WordBank:  wordBank,
		Embedder:  embedder,
		Store:     store,
		Tokens:    tokens,
		Reporter:  reporter,
		Logger:    log,
		MaxTokens: cfg.MaxTokens,
	})

	req := RunRequest{
		Theme:           theme,
		Craziness:       craziness,
		Count:           firstPositive(o.count, cfg.Count),
		MaxCritique:     firstPositive(o.maxCritique, cfg.MaxCritique),
		Parallel:        firstPositive(o.parallel, cfg.Parallel),
		DedupeThreshold: threshold,
		OutputDir:       firstNonEmpty(o.outDir, cfg.OutputDir),
		Markdown:        o.markdown,
	}

	start := time.Now()
	run, err := pipeline.Run(ctx, req)
	reporter.Close()
	if err != nil {
		return err
	}

	printRunSummary(out, cfg.Theme, run, time.Since(start))
	if o.summary {
		if err := printMarkdown(out, RenderMarkdown(run)); err != nil {
			log.Warn("markdown render failed", zap.Error(err))
		}
	}
	return nil
}

// askRunInputs fills in the theme and craziness the flags left out
func askRunInputs(o *runOptions, profile Profile, theme *Theme, crazinessSet bool) (string, int, error) {
	name := strings.TrimSpace(o.theme)
	level := o.craziness
	needCraziness := profile.CrazinessDriven && !crazinessSet

	if name != "" && !needCraziness {
		return name, level, nil
	}

	if interactive(o) {
		res, err := RunForm(profile, name, needCraziness)
		if err != nil {
			return "", 0, err
		}
		if res.Cancelled {
			return "", 0, nil
		}
		if res.Theme == "" {
			return "", 0, ErrNoTheme()
		}
		if needCraziness {
			level = res.Craziness
		}
		return res.Theme, level, nil
	}

	prompter := NewLinePrompter(os.Stdin, os.Stdout, theme)
	if name == "" {
		var err error
		if name, err = prompter.AskTheme(); err != nil {
			return "", 0, err
		}
	}
	if needCraziness {
		var err error
		if level, err = prompter.AskCraziness(); err != nil {
			if errors.Is(err, io.EOF) {
				return "", 0, fmt.Errorf("no craziness level given: %w", err)
			}
			return "", 0, err
		}
	}
	return name, level, nil
}

// webCheckWanted resolves the run flags, the settings switch and the profile default,
// in that order. --no-web-check beats --web-check.
func webCheckWanted(cfg *Config, profile Profile, o *runOptions) bool {
	switch {
	case o.noWebCheck:
		return false
	case o.webCheck:
		return true
	case !cfg.WebCheck:
		return false
	default:
		return profile.WebCheck
	}
}

// newChecker picks the web check for this run
func newChecker(cfg *Config, profile Profile, o *runOptions, log *zap.Logger) *SearchChecker {
	if !webCheckWanted(cfg, profile, o) {
		return DisabledSearchChecker(reasonDisabledByRun, log)
	}
	return NewSearchChecker(SearchCheckerConfig{
		APIKey: cfg.GoogleAPIKey,
		CSEID:  cfg.GoogleCSEID,
		Delay:  cfg.SearchDelay,
		Policy: profile.Search,
		Logger: log,
	})
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return "."
}

func printBanner(out io.Writer, theme *Theme, provider ProviderType, profile Profile, name string, level int) {
	_, _ = fmt.Fprintf(out, "%s %s\n", theme.Accent("namecritic"), theme.Dim(Version))
	_, _ = fmt.Fprintf(out, "Theme: %s  Profile: %s  Provider: %s\n", theme.Info(name), profile.Name, providerDisplayName(provider))
	if profile.CrazinessDriven {
		cz := CrazinessFor(level)
		_, _ = fmt.Fprintf(out, "Craziness: %d (%s)\n", cz.Level, cz.Description)
	}
}

// printRunSummary lists the critiqued names in report order
func printRunSummary(out io.Writer, theme *Theme, run *RunResult, elapsed time.Duration) {
	_, _ = fmt.Fprintln(out)
	if len(run.Results) == 0 {
		_, _ = fmt.Fprintln(out, theme.Warning("No names made it through critique."))
		return
	}

	title := "Critiqued names"
	if run.Ranked() {
		title = "Ranked names"
	}
	_, _ = fmt.Fprintln(out, theme.Accent(title))
	for i, r := range run.Results {
		prefix := fmt.Sprintf("%2d.", i+1)
		if r.Rank > 0 {
			prefix = fmt.Sprintf("#%d", r.Rank)
		}
		line := fmt.Sprintf("%s %s  avg %s", prefix, r.Name, averageScore(r.Critiques))
		if r.Synthesis != nil && r.Synthesis.Verdict != nil {
			line += "  " + theme.Info(*r.Synthesis.Verdict)
		}
		_, _ = fmt.Fprintln(out, line)
		if r.Justification != "" {
			for _, l := range wrapText(stripMarkdown(r.Justification), 76) {
				_, _ = fmt.Fprintln(out, "     "+theme.Dim(l))
			}
		}
	}

	_, _ = fmt.Fprintln(out)
	if run.ReportPath != "" {
		_, _ = fmt.Fprintf(out, "Report: %s\n", run.ReportPath)
	}
	if run.MarkdownPath != "" {
		_, _ = fmt.Fprintf(out, "Markdown: %s\n", run.MarkdownPath)
	}
	_, _ = fmt.Fprintf(out, "%s\n", theme.Dim(fmt.Sprintf("Run %s · %s · %s in / %s out tokens",
		run.ID, elapsed.Round(time.Second), formatTokenCount(run.InputTokens), formatTokenCount(run.OutputTokens))))
}

// printMarkdown renders md for the terminal with glamour
func printMarkdown(out io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return err
	}
	rendered, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, rendered)
	return err
}

func openHistory() (*Store, error) {
	cfg := LoadConfig()
	if cfg.HistoryDB == "" {
		return nil, errors.New("history database path is not set")
	}
	return OpenStore(cfg.HistoryDB)
}

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), historyTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Number of runs to show")
	return cmd
}

// historyTable renders run summaries as a bordered table
func historyTable(runs []RunSummary) string {
	styles := NewStyles()
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.Dim).
		Headers("ID", "When", "Profile", "Theme", "Names", "Top")
	for _, r := range runs {
		t.Row(
			r.ID[:min(8, len(r.ID))],
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Profile,
			truncate(r.Theme, 40),
			fmt.Sprintf("%d", r.Critiqued),
			r.TopName,
		)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return styles.Title.Padding(0, 1)
		}
		return lipgloss.NewStyle().Padding(0, 1)
	})
	return t.String()
}

func newReportCmd() *cobra.Command {
	var outDir string
	var markdown, summary bool
	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Re-render the report for a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.LoadRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = "."
			}
			path, err := WriteHTMLReport(run, outDir)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", path)
			if markdown {
				mdPath, err := WriteMarkdownReport(run, outDir)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Markdown: %s\n", mdPath)
			}
			if summary {
				return printMarkdown(cmd.OutOrStdout(), RenderMarkdown(run))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory for the HTML report")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Also write a Markdown summary")
	cmd.Flags().BoolVar(&summary, "summary", false, "Print a rendered Markdown summary")
	return cmd
}

func newPersonasCmd() *cobra.Command {
	var profileName string
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "Print the critic roster for a profile as YAML",
		Long: `Print the built-in critic roster for a profile. The output is a valid
--personas file: edit it and pass it back to override the panel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := LookupProfile(profileName)
			if err != nil {
				return err
			}
			data, err := MarshalRoster(BuiltinRoster(profile.Name))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&profileName, "profile", "p", ProfileEngine, "Profile whose roster to print")
	return cmd
}

func newModelsCmd() *cobra.Command {
	models := &cobra.Command{
		Use:   "models",
		Short: "Manage local assets",
	}
	models.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Download ONNX Runtime, the embedding model and WordNet into ~/.namecritic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig()
			out := cmd.OutOrStdout()
			progress := func(msg string) {
				_, _ = fmt.Fprintln(out, cfg.Theme.Dim("  "+msg))
			}

			ctx := cmd.Context()
			_, _ = fmt.Fprintln(out, cfg.Theme.Info("ONNX Runtime"))
			if err := EnsureONNXRuntime(ctx, progress); err != nil {
				return fmt.Errorf("ONNX Runtime: %w", err)
			}
			_, _ = fmt.Fprintln(out, cfg.Theme.Info("Embedding model"))
			if err := EnsureEmbeddingModel(ctx, progress); err != nil {
				return fmt.Errorf("embedding model: %w", err)
			}
			_, _ = fmt.Fprintln(out, cfg.Theme.Info("WordNet"))
			if err := EnsureWordNet(ctx, cfg.WordNetDir, progress); err != nil {
				return fmt.Errorf("WordNet: %w", err)
			}
			if !IsONNXAvailable() {
				_, _ = fmt.Fprintln(out, cfg.Theme.Warning("This build has no ONNX support; similarity will use Ollama embeddings or trigrams."))
			}
			_, _ = fmt.Fprintln(out, cfg.Theme.Success("All assets ready."))
			return nil
		},
	})
	return models
}

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "namecritic %s (built %s)\n", Version, BuildDate)
			if !check {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			latest, available, err := NewUpdateChecker().Check(ctx, Version)
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}
			switch {
			case latest == "":
				_, _ = fmt.Fprintln(out, "Development build; update check skipped.")
			case available:
				_, _ = fmt.Fprintf(out, "\n    \033[93mUpdate available:\033[0m %s -> %s\n", Version, latest)
				_, _ = fmt.Fprintf(out, "    Run: \033[96m%s\033[0m\n", GetUpdateCommand())
			default:
				_, _ = fmt.Fprintln(out, "You are on the latest version.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprint(os.Stderr, FormatUserError(err))
		stop()
		os.Exit(1)
	}
}
