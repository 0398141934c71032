package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/book-expert/audiobook-studio/internal/audiobook"
	"github.com/book-expert/audiobook-studio/internal/config"
	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/book-expert/audiobook-studio/internal/script"
	"github.com/book-expert/audiobook-studio/internal/synthesis"
	"github.com/book-expert/audiobook-studio/internal/voices"
	"github.com/book-expert/logger"
)

// Flag descriptions.
const (
	flagProjectDesc  = "Project name to generate into"
	flagScriptDesc   = "Path to a script file to narrate"
	flagVoiceDesc    = "Voice sample name for single-voice narration"
	flagLanguageDesc = "Language code for synthesis (default en)"
	flagMergeDesc    = "Merge the project's generated lines into one audiobook"
	flagVerboseDesc  = "Enable verbose logging"
	flagHealthDesc   = "Check synthesis service health and exit"
)

// Flag names.
const (
	flagProject  = "project"
	flagScript   = "script"
	flagVoice    = "voice"
	flagLanguage = "language"
	flagMerge    = "merge"
	flagVerbose  = "verbose"
	flagHealth   = "health"
)

// Error and log messages.
const (
	errFailedToLoadConfig  = "Failed to load configuration: %v"
	errFailedToInitLogger  = "Failed to initialize logger: %v"
	errHealthCheckFailed   = "Health check failed: %v"
	errServiceNotHealthy   = "Synthesis service is not healthy: %v\n"
	msgServiceHealthy      = "Synthesis service is healthy"
	errProjectRequired     = "--project is required"
	errNothingToDo         = "Provide --script with --voice, or --merge"
	errFailedToReadScript  = "Failed to read script file: %v"
	errFailedToGenerate    = "Failed to generate lines: %v"
	errFailedToMerge       = "Failed to merge project: %v"
	logClientInitialized   = "Studio client initialized (projects dir: %s)"
	logGenerationSummary   = "Generated %d line(s), skipped %d, %d failure(s)\n"
	logMergedAudiobook     = "Merged audiobook written: %s\n"
)

// File names and defaults.
const (
	logFileNameDefault     = "studio-client.log"
	logFileNameVerbose     = "studio-client-verbose.log"
	defaultSingleVoiceLang = "en"
	healthCheckTimeout     = 10 * time.Second
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	project  string
	script   string
	voice    string
	language string
	merge    bool
	verbose  bool
	health   bool
}

func main() {
	err := run()
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	cfg, studioLog, err := setup(flags.verbose)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := studioLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	studioLog.Info(logClientInitialized, cfg.Paths.ProjectsDir)

	if flags.health {
		return handleHealthCheck(cfg, studioLog)
	}

	return handleExecution(cfg, studioLog, flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.project, flagProject, "", flagProjectDesc)
	flag.StringVar(&flags.script, flagScript, "", flagScriptDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.language, flagLanguage, defaultSingleVoiceLang, flagLanguageDesc)
	flag.BoolVar(&flags.merge, flagMerge, false, flagMergeDesc)
	flag.BoolVar(&flags.verbose, flagVerbose, false, flagVerboseDesc)
	flag.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flag.Parse()

	return flags
}

// setup loads the configuration and initializes the logger.
func setup(verbose bool) (*config.Config, *logger.Logger, error) {
	bootstrapLog, bootstrapErr := logger.New(os.TempDir(), logFileNameDefault)
	if bootstrapErr != nil {
		return nil, nil, fmt.Errorf(errFailedToInitLogger, bootstrapErr)
	}

	cfg, loadErr := config.Load(bootstrapLog)
	if loadErr != nil {
		return nil, nil, fmt.Errorf(errFailedToLoadConfig, loadErr)
	}

	logFileName := logFileNameDefault
	if verbose {
		logFileName = logFileNameVerbose
	}

	studioLog, logErr := logger.New(cfg.Paths.BaseLogsDir, logFileName)
	if logErr != nil {
		return nil, nil, fmt.Errorf(errFailedToInitLogger, logErr)
	}

	return cfg, studioLog, nil
}

// handleHealthCheck performs a synthesis service health check and prints the result.
func handleHealthCheck(cfg *config.Config, studioLog *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	client := synthesis.NewClient(cfg.Synthesis.URL, healthCheckTimeout)

	err := client.HealthCheck(ctx)
	if err != nil {
		studioLog.Error(errHealthCheckFailed, err)
		fmt.Printf(errServiceNotHealthy, err)

		return err
	}

	fmt.Println(msgServiceHealthy)

	return nil
}

// handleExecution validates flags and dispatches to generation or merging.
func handleExecution(cfg *config.Config, studioLog *logger.Logger, flags appFlags) error {
	if flags.project == "" {
		flag.Usage()
		studioLog.Error(errProjectRequired)

		return errors.New(errProjectRequired)
	}

	projects := project.NewStore(cfg.Paths.ProjectsDir, studioLog)

	if flags.script != "" {
		err := generateScript(cfg, studioLog, projects, flags)
		if err != nil {
			return err
		}
	}

	if flags.merge {
		return mergeProject(cfg, studioLog, projects, flags.project)
	}

	if flags.script == "" {
		flag.Usage()
		studioLog.Error(errNothingToDo)

		return errors.New(errNothingToDo)
	}

	return nil
}

// generateScript parses the script file as single-voice narration and
// generates audio for every chunk.
func generateScript(
	cfg *config.Config,
	studioLog *logger.Logger,
	projects *project.Store,
	flags appFlags,
) error {
	scriptText, readErr := os.ReadFile(flags.script)
	if readErr != nil {
		studioLog.Error(errFailedToReadScript, readErr)

		return fmt.Errorf(errFailedToReadScript, readErr)
	}

	lines := script.ParseSingleVoice(string(scriptText), flags.voice, synthesis.MaxChars)

	library := voices.NewLibrary(cfg.Paths.VoiceLibraryDir, studioLog)
	synth := synthesis.NewClient(cfg.Synthesis.URL, cfg.Synthesis.Timeout())
	generator := audiobook.NewGenerator(
		synth,
		projects,
		library,
		cfg.Synthesis.WorkerCount(),
		cfg.Synthesis.Timeout(),
		studioLog,
	)

	result, genErr := generator.GenerateLines(
		context.Background(),
		flags.project,
		flags.language,
		lines,
		cfg.Generation,
	)
	if genErr != nil {
		studioLog.Error(errFailedToGenerate, genErr)

		return fmt.Errorf(errFailedToGenerate, genErr)
	}

	fmt.Printf(logGenerationSummary, result.Generated, result.Skipped, result.Failed)

	return nil
}

// mergeProject merges every generated line of the project into one audiobook file.
func mergeProject(
	cfg *config.Config,
	studioLog *logger.Logger,
	projects *project.Store,
	projectName string,
) error {
	merger := audiobook.NewMerger(projects, cfg.Paths.OutputDir, studioLog)

	overrides := projects.LoadLedger(projectName)

	outputName, mergeErr := merger.Merge(projectName, overrides)
	if mergeErr != nil {
		studioLog.Error(errFailedToMerge, mergeErr)

		return fmt.Errorf(errFailedToMerge, mergeErr)
	}

	fmt.Printf(logMergedAudiobook, outputName)

	return nil
}
