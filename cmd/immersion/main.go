package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/tutin/immersion/internal/anki"
	"codeberg.org/tutin/immersion/internal/audio"
	"codeberg.org/tutin/immersion/internal/card"
	"codeberg.org/tutin/immersion/internal/cli"
	"codeberg.org/tutin/immersion/internal/gui"
	"codeberg.org/tutin/immersion/internal/imagegen"
	"codeberg.org/tutin/immersion/internal/prefetch"
	"codeberg.org/tutin/immersion/internal/processor"
	"codeberg.org/tutin/immersion/internal/review"
	"codeberg.org/tutin/immersion/internal/source"
	"codeberg.org/tutin/immersion/internal/textgen"
)

func main() {
	flags := cli.NewFlags()
	rootCmd := cli.CreateRootCommand(flags)

	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(args, flags)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(args []string, flags *cli.Flags) error {
	applyConfig(flags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := buildSource(flags, args)
	if err != nil {
		return err
	}

	sink, err := buildSink(flags)
	if err != nil {
		return err
	}

	text, err := textgen.New(ctx, textgen.Config{
		APIKey:         cli.GetGoogleKey(),
		TargetLanguage: flags.TargetLanguage,
		Proficiency:    flags.Proficiency,
		SentenceWords:  flags.SentenceWords,
	})
	if err != nil {
		return fmt.Errorf("text client: %w", err)
	}

	image, err := imagegen.New(imagegen.Config{
		APIKey:  cli.GetOpenAIKey(),
		Mode:    imagegen.Mode(flags.ImageMode),
		Size:    flags.ImageSize,
		TempDir: flags.TempDir,
	})
	if err != nil {
		return fmt.Errorf("image client: %w", err)
	}

	voice := buildAudio(flags)

	// A single command-line entry implies headless; there is nothing to
	// review interactively for a one-shot invocation unless asked for.
	if flags.Headless || len(args) > 0 {
		proc := processor.New(src, sink, text, image, flags.MediaDir)
		proc.Audio = voice
		proc.BatchLimit = flags.BatchLimit
		proc.Workers = flags.Workers
		if err := proc.Run(ctx); err != nil {
			return err
		}
		return exportSink(sink, flags)
	}

	items, err := src.Fetch(flags.BatchLimit)
	if err != nil {
		return fmt.Errorf("failed to load the word queue: %w", err)
	}
	if len(items) == 0 {
		fmt.Println("Nothing to review: no pending entries.")
		return nil
	}

	store := card.NewStore()
	scheduler := prefetch.NewScheduler(store, text, image, flags.Workers)
	scheduler.Start(ctx)
	scheduler.Enqueue(items)
	// No further enqueues this session; let the pool drain in the
	// background while the review window is open.
	go scheduler.Close()

	session := review.NewSession(store, items, src, sink, text, image, flags.MediaDir)
	session.Audio = voice

	app := gui.New(session)
	app.Run()
	return exportSink(sink, flags)
}

// applyConfig folds config-file values into the flags. Viper returns the
// flag value unless the config file overrides an unchanged flag, which
// gives the merge-with-defaults policy.
func applyConfig(flags *cli.Flags) {
	flags.MediaDir = viper.GetString("output.media_dir")
	flags.TempDir = viper.GetString("output.temp_dir")
	flags.StagingCSV = viper.GetString("output.staging_csv")
	flags.APKGFile = viper.GetString("output.apkg_file")
	flags.SourceFile = viper.GetString("source.file")
	flags.SourceKind = viper.GetString("source.kind")
	flags.BatchLimit = viper.GetInt("source.batch_limit")
	flags.Workers = viper.GetInt("prefetch.workers")
	flags.SinkKind = viper.GetString("sink.kind")
	flags.TargetLanguage = viper.GetString("learn.language")
	flags.Proficiency = viper.GetString("learn.level")
	flags.SentenceWords = viper.GetInt("learn.sentence_words")
	flags.ImageMode = viper.GetString("image.mode")
	flags.ImageSize = viper.GetString("image.size")
	flags.Voice = viper.GetString("audio.voice")
	flags.Speed = viper.GetFloat64("audio.speed")
	flags.AnkiURL = viper.GetString("anki.url")
	flags.DeckName = viper.GetString("anki.deck")
	flags.ModelName = viper.GetString("anki.model")
}

func buildSource(flags *cli.Flags, args []string) (source.Source, error) {
	if len(args) > 0 {
		return source.NewStaticSource(args), nil
	}
	if flags.SourceFile == "" {
		return nil, fmt.Errorf("no word source: pass an entry, --source or set source.file in the config")
	}

	kind := flags.SourceKind
	if strings.EqualFold(filepath.Ext(flags.SourceFile), ".xlsx") {
		kind = "xlsx"
	}

	switch kind {
	case "xlsx":
		return source.NewSpreadsheetSource(flags.SourceFile), nil
	case "text":
		return source.NewTextSource(flags.SourceFile), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q (want text or xlsx)", kind)
	}
}

func buildSink(flags *cli.Flags) (anki.Sink, error) {
	switch flags.SinkKind {
	case "anki":
		client := anki.NewConnectClient(flags.AnkiURL, flags.DeckName, flags.ModelName)
		if _, err := client.Version(); err != nil {
			return nil, err
		}
		if err := client.EnsureSetup(); err != nil {
			return nil, fmt.Errorf("failed to prepare deck and note type: %w", err)
		}
		return client, nil
	case "csv":
		return anki.NewCSVSink(flags.StagingCSV, 0), nil
	case "apkg":
		return anki.NewAPKGExporter(flags.DeckName, flags.MediaDir), nil
	default:
		return nil, fmt.Errorf("unknown sink %q (want anki, csv or apkg)", flags.SinkKind)
	}
}

// exportSink finalizes sinks that buffer until the session is over. The
// apkg exporter collects approved cards in memory and only writes the
// package here.
func exportSink(sink anki.Sink, flags *cli.Flags) error {
	exporter, ok := sink.(*anki.APKGExporter)
	if !ok || exporter.Len() == 0 {
		return nil
	}

	if err := exporter.Export(flags.APKGFile); err != nil {
		return fmt.Errorf("failed to write the apkg package: %w", err)
	}
	fmt.Printf("Wrote %d cards to %s\n", exporter.Len(), flags.APKGFile)
	return nil
}

// buildAudio returns the TTS provider, or nil when audio is skipped or no
// key is configured. Audio is best-effort, so a missing key only logs.
func buildAudio(flags *cli.Flags) audio.Provider {
	if flags.SkipAudio {
		return nil
	}

	config := audio.DefaultConfig()
	config.APIKey = cli.GetOpenAIKey()
	// Left empty, the provider draws a fresh random voice per clip.
	config.Voice = flags.Voice
	config.Speed = flags.Speed

	provider, err := audio.NewProvider(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Audio disabled: %v\n", err)
		return nil
	}
	return provider
}
