package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// APKGExporter writes approved cards into a self-contained .apkg package
// that Anki imports without the AnkiConnect add-on. Media files are
// resolved against mediaDir.
type APKGExporter struct {
	deckName     string
	mediaDir     string
	deckID       int64
	modelID      int64
	cards        []Card
	mediaNumbers map[string]int
}

// NewAPKGExporter creates an exporter for one deck.
func NewAPKGExporter(deckName, mediaDir string) *APKGExporter {
	// IDs derive from the wall clock so repeated exports never collide.
	now := time.Now().UnixMilli()
	return &APKGExporter{
		deckName:     deckName,
		mediaDir:     mediaDir,
		deckID:       now,
		modelID:      now + 1,
		mediaNumbers: make(map[string]int),
	}
}

// Add queues a card for export.
func (e *APKGExporter) Add(card Card) {
	e.cards = append(e.cards, card)
}

// Put queues a card for export, satisfying Sink. Nothing is written
// until Export runs.
func (e *APKGExporter) Put(card Card) error {
	e.Add(card)
	return nil
}

// Name returns a short description for status messages.
func (e *APKGExporter) Name() string {
	return "apkg export"
}

// Len reports how many cards are queued.
func (e *APKGExporter) Len() int {
	return len(e.cards)
}

// Export writes the .apkg file to outputPath.
func (e *APKGExporter) Export(outputPath string) error {
	tempDir, err := os.MkdirTemp("", "immersion_apkg_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Media goes first so the numbering map exists when notes reference it.
	if err := e.stageMedia(tempDir); err != nil {
		return fmt.Errorf("failed to stage media files: %w", err)
	}
	if err := e.writeMediaMapping(tempDir); err != nil {
		return fmt.Errorf("failed to write media mapping: %w", err)
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := e.writeDatabase(dbPath); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	if err := e.writeZip(tempDir, outputPath); err != nil {
		return fmt.Errorf("failed to create zip package: %w", err)
	}

	return nil
}

func (e *APKGExporter) writeDatabase(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := e.createTables(db); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := e.insertCollection(db); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	if err := e.insertNotesAndCards(db); err != nil {
		return fmt.Errorf("failed to insert notes and cards: %w", err)
	}

	return nil
}

func (e *APKGExporter) createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE col (
			id integer PRIMARY KEY,
			crt integer NOT NULL,
			mod integer NOT NULL,
			scm integer NOT NULL,
			ver integer NOT NULL,
			dty integer NOT NULL,
			usn integer NOT NULL,
			ls integer NOT NULL,
			conf text NOT NULL,
			models text NOT NULL,
			decks text NOT NULL,
			dconf text NOT NULL,
			tags text NOT NULL
		)`,
		`CREATE TABLE notes (
			id integer PRIMARY KEY,
			guid text NOT NULL,
			mid integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			tags text NOT NULL,
			flds text NOT NULL,
			sfld text NOT NULL,
			csum integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE cards (
			id integer PRIMARY KEY,
			nid integer NOT NULL,
			did integer NOT NULL,
			ord integer NOT NULL,
			mod integer NOT NULL,
			usn integer NOT NULL,
			type integer NOT NULL,
			queue integer NOT NULL,
			due integer NOT NULL,
			ivl integer NOT NULL,
			factor integer NOT NULL,
			reps integer NOT NULL,
			lapses integer NOT NULL,
			left integer NOT NULL,
			odue integer NOT NULL,
			odid integer NOT NULL,
			flags integer NOT NULL,
			data text NOT NULL
		)`,
		`CREATE TABLE revlog (
			id integer PRIMARY KEY,
			cid integer NOT NULL,
			usn integer NOT NULL,
			ease integer NOT NULL,
			ivl integer NOT NULL,
			lastIvl integer NOT NULL,
			factor integer NOT NULL,
			time integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE TABLE graves (
			usn integer NOT NULL,
			oid integer NOT NULL,
			type integer NOT NULL
		)`,
		`CREATE INDEX ix_notes_csum ON notes (csum)`,
		`CREATE INDEX ix_notes_usn ON notes (usn)`,
		`CREATE INDEX ix_cards_usn ON cards (usn)`,
		`CREATE INDEX ix_cards_nid ON cards (nid)`,
		`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
		`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
		`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

func (e *APKGExporter) insertCollection(db *sql.DB) error {
	now := time.Now().Unix()

	decks := map[string]interface{}{
		"1": deckConfig(1, "Default", "", now),
		fmt.Sprintf("%d", e.deckID): deckConfig(e.deckID, e.deckName,
			"Vocabulary cards generated by Immersion", now),
	}
	decksJSON, _ := json.Marshal(decks)

	models := map[string]interface{}{
		fmt.Sprintf("%d", e.modelID): e.noteTypeConfig(),
	}
	modelsJSON, _ := json.Marshal(models)

	conf := map[string]interface{}{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      fmt.Sprintf("%d", e.modelID),
		"dayLearnFirst": false,
	}
	confJSON, _ := json.Marshal(conf)

	dconf := map[string]interface{}{
		"1": map[string]interface{}{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": map[string]interface{}{
				"delays":        []int{1, 10},
				"ints":          []int{1, 4, 7},
				"initialFactor": 2500,
				"perDay":        20,
				"order":         1,
				"bury":          true,
				"separate":      true,
			},
			"lapse": map[string]interface{}{
				"delays":      []int{10},
				"mult":        0,
				"minInt":      1,
				"leechFails":  8,
				"leechAction": 0,
			},
			"rev": map[string]interface{}{
				"perDay":   100,
				"ease4":    1.3,
				"fuzz":     0.05,
				"maxIvl":   36500,
				"ivlFct":   1,
				"bury":     true,
				"minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      now,
			"autoplay": true,
			"replayq":  true,
		},
	}
	dconfJSON, _ := json.Marshal(dconf)

	query := `INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Exec(query,
		1,        // id
		now,      // crt
		now*1000, // mod
		now*1000, // scm
		11,       // ver (schema version)
		0,        // dty
		0,        // usn
		0,        // ls
		string(confJSON),
		string(modelsJSON),
		string(decksJSON),
		string(dconfJSON),
		"{}", // tags
	)
	return err
}

func deckConfig(id int64, name, desc string, now int64) map[string]interface{} {
	return map[string]interface{}{
		"id":               id,
		"name":             name,
		"mod":              now,
		"desc":             desc,
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

func (e *APKGExporter) noteTypeConfig() map[string]interface{} {
	flds := make([]map[string]interface{}, len(modelFields))
	for i, name := range modelFields {
		flds[i] = map[string]interface{}{
			"name":   name,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Arial",
			"size":   20,
			"media":  []string{},
		}
	}

	return map[string]interface{}{
		"id":    e.modelID,
		"name":  "AI_Immersion_Card",
		"type":  0,
		"mod":   time.Now().Unix(),
		"usn":   -1,
		"sortf": 0,
		"did":   e.deckID,
		"req":   [][]interface{}{[]interface{}{0, "all", []int{0}}},
		"vers":  []int{},
		"tags":  []string{},
		"latexPre": `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}`,
		"latexPost": `\end{document}`,
		"flds":      flds,
		"tmpls": []map[string]interface{}{
			{
				"name":  "Card 1",
				"ord":   0,
				"qfmt":  frontTemplate,
				"afmt":  backTemplate,
				"did":   nil,
				"bqfmt": "",
				"bafmt": "",
			},
		},
		"css": cardCSS,
	}
}

const frontTemplate = `<div class="front">
<div class="target">{{TargetWord}}</div>
</div>`

const backTemplate = `{{FrontSide}}

<hr id="answer">

<div class="back">
<div class="definition">{{Definition}}</div>
<div class="sentence"><i>{{Sentence}}</i></div>
<div class="translation"><small>{{Translation}}</small></div>
{{#Audio}}
<div class="audio">{{Audio}}</div>
{{/Audio}}
{{#Image}}
<div class="image-container">{{Image}}</div>
{{/Image}}
<div class="scenario"><small>{{Scenario}}</small></div>
</div>`

func (e *APKGExporter) insertNotesAndCards(db *sql.DB) error {
	now := time.Now()

	for i, card := range e.cards {
		noteID := now.UnixMilli() + int64(i*2)
		cardID := noteID + 1

		imageField := ""
		if card.ImageFile != "" {
			if _, ok := e.mediaNumbers[card.ImageFile]; ok {
				imageField = ImageField(card.ImageFile)
			}
		}
		audioField := ""
		if card.AudioFile != "" {
			if _, ok := e.mediaNumbers[card.AudioFile]; ok {
				audioField = AudioField(card.AudioFile)
			}
		}

		// Fields joined with the Anki field separator (ASCII 31).
		fields := strings.Join([]string{
			card.Target,
			card.Definition,
			card.Sentence,
			card.Translation,
			card.Scenario,
			imageField,
			audioField,
		}, "\x1f")

		guid := fmt.Sprintf("im_%d_%s", now.Unix(), card.Target)

		noteQuery := `INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := db.Exec(noteQuery,
			noteID,      // id
			guid,        // guid
			e.modelID,   // mid
			now.Unix(),  // mod
			-1,          // usn
			"",          // tags
			fields,      // flds
			card.Target, // sfld (sort field)
			0,           // csum
			0,           // flags
			"",          // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}

		cardQuery := `INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err = db.Exec(cardQuery,
			cardID,     // id
			noteID,     // nid
			e.deckID,   // did
			0,          // ord
			now.Unix(), // mod
			-1,         // usn
			0,          // type (0=new)
			0,          // queue (0=new)
			noteID,     // due (position for new cards)
			0,          // ivl
			0,          // factor
			0,          // reps
			0,          // lapses
			0,          // left
			0,          // odue
			0,          // odid
			0,          // flags
			"",         // data
		)
		if err != nil {
			return fmt.Errorf("failed to insert card: %w", err)
		}
	}

	return nil
}

// stageMedia copies referenced media into tempDir under numeric names and
// records the filename to number mapping.
func (e *APKGExporter) stageMedia(tempDir string) error {
	for _, card := range e.cards {
		for _, name := range []string{card.ImageFile, card.AudioFile} {
			if name == "" {
				continue
			}
			if _, exists := e.mediaNumbers[name]; exists {
				continue
			}
			src := filepath.Join(e.mediaDir, name)
			if !fileExists(src) {
				continue
			}
			num := len(e.mediaNumbers)
			target := filepath.Join(tempDir, fmt.Sprintf("%d", num))
			if err := copyFile(src, target); err != nil {
				return fmt.Errorf("failed to copy media file %s: %w", src, err)
			}
			e.mediaNumbers[name] = num
		}
	}

	return nil
}

func (e *APKGExporter) writeMediaMapping(tempDir string) error {
	// Anki wants the reverse mapping (number -> filename).
	mapping := make(map[string]string)
	for filename, num := range e.mediaNumbers {
		mapping[fmt.Sprintf("%d", num)] = filename
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(tempDir, "media"), data, 0644)
}

func (e *APKGExporter) writeZip(tempDir, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	archive := zip.NewWriter(zipFile)
	defer archive.Close()

	return filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(tempDir, path)
		if err != nil {
			return err
		}

		writer, err := archive.Create(relPath)
		if err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(writer, file)
		return err
	})
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
