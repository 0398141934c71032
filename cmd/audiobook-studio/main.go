// main package for the audiobook-studio service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/audiobook-studio/internal/audiobook"
	"github.com/book-expert/audiobook-studio/internal/config"
	"github.com/book-expert/audiobook-studio/internal/objectstore"
	"github.com/book-expert/audiobook-studio/internal/project"
	"github.com/book-expert/audiobook-studio/internal/synthesis"
	"github.com/book-expert/audiobook-studio/internal/voices"
	"github.com/book-expert/audiobook-studio/internal/worker"
	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "audiobook-studio.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

// serve wires the pipeline together and runs the NATS worker until a
// shutdown signal arrives.
func serve(cfg *config.Config, log *logger.Logger) error {
	natsConnection, connectErr := nats.Connect(cfg.NATS.URL)
	if connectErr != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, connectErr)
	}
	defer natsConnection.Close()

	jetstreamContext, jetstreamErr := natsConnection.JetStream()
	if jetstreamErr != nil {
		return fmt.Errorf("failed to create JetStream context: %w", jetstreamErr)
	}

	blobs, storeErr := objectstore.New(jetstreamContext, cfg.NATS.AudiobookObjectBucket)
	if storeErr != nil {
		return fmt.Errorf("failed to initialize object store: %w", storeErr)
	}

	projects := project.NewStore(cfg.Paths.ProjectsDir, log)
	library := voices.NewLibrary(cfg.Paths.VoiceLibraryDir, log)
	synth := synthesis.NewClient(cfg.Synthesis.URL, cfg.Synthesis.Timeout())

	generator := audiobook.NewGenerator(
		synth,
		projects,
		library,
		cfg.Synthesis.WorkerCount(),
		cfg.Synthesis.Timeout(),
		log,
	)
	merger := audiobook.NewMerger(projects, cfg.Paths.OutputDir, log)

	studioWorker := worker.NewNatsWorker(
		natsConnection,
		worker.Subjects{
			ScriptSubmitted: cfg.NATS.ScriptSubmittedSubject,
			MergeRequested:  cfg.NATS.MergeRequestedSubject,
			RegenerateLine:  cfg.NATS.RegenerateLineSubject,
			StudioAdmin:     cfg.NATS.StudioAdminSubject,
		},
		generator,
		merger,
		library,
		blobs,
		cfg.Paths.OutputDir,
		log,
	)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	log.System(
		"Audiobook studio initialized. Listening on %s, %s, %s and %s",
		cfg.NATS.ScriptSubmittedSubject,
		cfg.NATS.MergeRequestedSubject,
		cfg.NATS.RegenerateLineSubject,
		cfg.NATS.StudioAdminSubject,
	)

	runErr := studioWorker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("worker stopped with error: %w", runErr)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
