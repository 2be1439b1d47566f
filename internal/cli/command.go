package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/tutin/immersion/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "immersion [entry]",
		Short: "AI flashcard pipeline with human review",
		Long: `immersion turns vocabulary entries into reviewed Anki flashcards.

Each entry (a word, idiom or sentence, optionally with a "(hint)") is sent
to Gemini for definition, example sentence, translation and a visual
scenario, to DALL-E for an illustration and to OpenAI TTS for audio.
A review window lets you edit, regenerate and approve every card before it
is pushed to Anki via AnkiConnect or staged in a CSV file.

Examples:
  immersion                        # Review pending words from the configured source
  immersion --source words.txt     # Review entries from a text file
  immersion "Sobremesa (culture)"  # Process one entry headless, no review
  immersion --source inbox.xlsx --source-kind xlsx --headless`,
		Args:    cobra.MaximumNArgs(1),
		Version: internal.Version,
	}

	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	home, _ := os.UserHomeDir()
	defaultMediaDir := filepath.Join(home, ".local", "state", "immersion", "media")
	defaultTempDir := filepath.Join(os.TempDir(), "immersion_images")

	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.immersion.yaml)")

	// Local flags
	cmd.Flags().StringVarP(&flags.MediaDir, "media-dir", "o", defaultMediaDir, "Directory for approved media files")
	cmd.Flags().StringVar(&flags.TempDir, "temp-dir", defaultTempDir, "Directory for not-yet-approved images")
	cmd.Flags().StringVar(&flags.StagingCSV, "staging-csv", "ready_for_anki.csv", "Staging CSV file for the csv sink")
	cmd.Flags().StringVar(&flags.APKGFile, "apkg-file", flags.APKGFile, "Output package file for the apkg sink")
	cmd.Flags().StringVar(&flags.SourceFile, "source", "", "Word source: text file or .xlsx spreadsheet")
	cmd.Flags().StringVar(&flags.SourceKind, "source-kind", flags.SourceKind, "Source kind: text or xlsx")
	cmd.Flags().IntVar(&flags.BatchLimit, "batch-limit", flags.BatchLimit, "Maximum words fetched per session")
	cmd.Flags().IntVar(&flags.Workers, "workers", flags.Workers, "Number of background generation workers")
	cmd.Flags().StringVar(&flags.SinkKind, "sink", flags.SinkKind, "Approved card sink: anki, csv or apkg")
	cmd.Flags().BoolVar(&flags.SkipAudio, "skip-audio", false, "Skip audio synthesis on approval")
	cmd.Flags().BoolVar(&flags.Headless, "headless", false, "Process the whole queue without the review window")

	// Learning flags
	cmd.Flags().StringVar(&flags.TargetLanguage, "language", flags.TargetLanguage, "Target language of the entries")
	cmd.Flags().StringVar(&flags.Proficiency, "level", flags.Proficiency, "Learner proficiency used in prompts")
	cmd.Flags().IntVar(&flags.SentenceWords, "sentence-words", flags.SentenceWords, "Approximate example sentence length")

	// Image generation flags
	cmd.Flags().StringVar(&flags.ImageMode, "image-mode", flags.ImageMode, "Image backend: fast (dall-e-2) or quality (dall-e-3)")
	cmd.Flags().StringVar(&flags.ImageSize, "image-size", flags.ImageSize, "Image size, e.g. 512x512 or 1024x1024")

	// Audio flags
	cmd.Flags().StringVar(&flags.Voice, "voice", "", "OpenAI TTS voice (default: random per card)")
	cmd.Flags().Float64Var(&flags.Speed, "speed", flags.Speed, "OpenAI TTS speed (0.25 to 4.0)")

	// AnkiConnect flags
	cmd.Flags().StringVar(&flags.AnkiURL, "anki-url", flags.AnkiURL, "AnkiConnect endpoint")
	cmd.Flags().StringVar(&flags.DeckName, "deck-name", flags.DeckName, "Anki deck to create cards in")
	cmd.Flags().StringVar(&flags.ModelName, "model-name", flags.ModelName, "Anki note type for generated cards")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("output.media_dir", cmd.Flags().Lookup("media-dir"))
	viper.BindPFlag("output.temp_dir", cmd.Flags().Lookup("temp-dir"))
	viper.BindPFlag("output.staging_csv", cmd.Flags().Lookup("staging-csv"))
	viper.BindPFlag("output.apkg_file", cmd.Flags().Lookup("apkg-file"))
	viper.BindPFlag("source.file", cmd.Flags().Lookup("source"))
	viper.BindPFlag("source.kind", cmd.Flags().Lookup("source-kind"))
	viper.BindPFlag("source.batch_limit", cmd.Flags().Lookup("batch-limit"))
	viper.BindPFlag("prefetch.workers", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("sink.kind", cmd.Flags().Lookup("sink"))
	viper.BindPFlag("learn.language", cmd.Flags().Lookup("language"))
	viper.BindPFlag("learn.level", cmd.Flags().Lookup("level"))
	viper.BindPFlag("learn.sentence_words", cmd.Flags().Lookup("sentence-words"))
	viper.BindPFlag("image.mode", cmd.Flags().Lookup("image-mode"))
	viper.BindPFlag("image.size", cmd.Flags().Lookup("image-size"))
	viper.BindPFlag("audio.voice", cmd.Flags().Lookup("voice"))
	viper.BindPFlag("audio.speed", cmd.Flags().Lookup("speed"))
	viper.BindPFlag("anki.url", cmd.Flags().Lookup("anki-url"))
	viper.BindPFlag("anki.deck", cmd.Flags().Lookup("deck-name"))
	viper.BindPFlag("anki.model", cmd.Flags().Lookup("model-name"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	// API keys commonly live in a local .env, like the rest of the tooling
	// around this workflow expects. Missing file is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".immersion")
	}

	viper.SetEnvPrefix("IMMERSION")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("openai.api_key")
}

// GetGoogleKey retrieves the Google Gemini API key from environment or config
func GetGoogleKey() string {
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("google.api_key")
}
