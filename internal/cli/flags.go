package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	MediaDir   string
	TempDir    string
	StagingCSV string
	APKGFile   string
	SourceFile string
	SourceKind string
	BatchLimit int
	Workers    int
	SinkKind   string
	SkipAudio  bool
	Headless   bool

	// Learning flags
	TargetLanguage string
	Proficiency    string
	SentenceWords  int

	// Image generation flags
	ImageMode string
	ImageSize string

	// Audio flags
	Voice string
	Speed float64

	// AnkiConnect flags
	AnkiURL   string
	DeckName  string
	ModelName string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		SourceKind:     "text",
		BatchLimit:     50,
		Workers:        3,
		SinkKind:       "anki",
		APKGFile:       "immersion.apkg",
		TargetLanguage: "Spanish",
		Proficiency:    "intermediate",
		SentenceWords:  12,
		ImageMode:      "quality",
		ImageSize:      "1024x1024",
		Speed:          1.0,
		AnkiURL:        "http://localhost:8765",
		DeckName:       "Immersion",
		ModelName:      "AI_Immersion_Card",
	}
}
