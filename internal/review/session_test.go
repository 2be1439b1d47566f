package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/tutin/immersion/internal/card"
	"codeberg.org/tutin/immersion/internal/imagegen"
	"codeberg.org/tutin/immersion/internal/prefetch"
	"codeberg.org/tutin/immersion/internal/source"
	"codeberg.org/tutin/immersion/internal/testutil"
	"codeberg.org/tutin/immersion/internal/textgen"
)

type sessionFixture struct {
	session *Session
	store   *card.Store
	src     *testutil.StubSource
	sink    *testutil.StubSink
	text    *testutil.StubTextGenerator
	image   *testutil.StubImageGenerator
	tempDir string
}

func newSessionFixture(t *testing.T, items []source.QueueItem) *sessionFixture {
	t.Helper()

	store := card.NewStore()
	for _, item := range items {
		store.GetOrCreate(item.Text, item.Hint)
	}

	f := &sessionFixture{
		store:   store,
		src:     &testutil.StubSource{Items: items},
		sink:    &testutil.StubSink{},
		text:    &testutil.StubTextGenerator{},
		image:   &testutil.StubImageGenerator{Dir: t.TempDir()},
		tempDir: t.TempDir(),
	}
	f.session = NewSession(store, items, f.src, f.sink, f.text, f.image, filepath.Join(t.TempDir(), "media"))
	return f
}

// writeTempImage simulates a completed prefetch image step.
func (f *sessionFixture) writeTempImage(t *testing.T, word, name string) string {
	t.Helper()
	path := filepath.Join(f.tempDir, name)
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	f.store.Update(word, card.Patch{ImagePath: card.String(path)})
	return path
}

func TestApproveBlockedWithoutImage(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal"}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))

	err := f.session.Approve(context.Background(), Fields{Definition: "cat"})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("Expected ErrNoImage, got %v", err)
	}
	if len(f.sink.Cards) != 0 {
		t.Error("Sink was written despite the refusal")
	}
	if len(f.src.Done) != 0 {
		t.Error("Source row was marked done despite the refusal")
	}
	if f.session.Index() != 0 {
		t.Error("Cursor advanced despite the refusal")
	}
}

func TestApproveBlockedOnImageError(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal"}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))
	f.store.Update("Gato", card.Patch{ImageError: card.String("content filtered")})

	err := f.session.Approve(context.Background(), Fields{Definition: "cat"})
	if !errors.Is(err, ErrImageError) {
		t.Fatalf("Expected ErrImageError, got %v", err)
	}
	if len(f.sink.Cards) != 0 || f.session.Index() != 0 {
		t.Error("Refusal had side effects")
	}
}

func TestApproveEndToEnd(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal", Row: 2}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))
	imgPath := f.writeTempImage(t, "Gato", "gato_1.png")

	f.session.Tick()
	d := f.session.Displayed()
	if d.Definition != "cat" || d.ImagePath != imgPath {
		t.Fatalf("Unexpected displayed state: %+v", d)
	}

	err := f.session.Approve(context.Background(), Fields{
		Definition:  d.Definition,
		Sentence:    d.Sentence,
		Translation: d.Translation,
		Scenario:    d.Scenario,
	})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if len(f.sink.Cards) != 1 {
		t.Fatalf("Expected 1 sink row, got %d", len(f.sink.Cards))
	}
	row := f.sink.Cards[0]
	if row.Target != "Gato" || row.Definition != "cat" {
		t.Errorf("Unexpected sink row: %+v", row)
	}
	if row.ImageFile != "gato_1.png" {
		t.Errorf("Unexpected image filename: %q", row.ImageFile)
	}

	if len(f.src.Done) != 1 || f.src.Done[0].Row != 2 {
		t.Errorf("Source row not marked done: %+v", f.src.Done)
	}

	if f.session.Index() != 1 {
		t.Errorf("Index = %d, want 1", f.session.Index())
	}
	if !f.session.Complete() {
		t.Error("Session should report complete")
	}

	// The image moved out of the temp location into the media directory.
	if _, err := os.Stat(imgPath); !os.IsNotExist(err) {
		t.Error("Temp image was not moved")
	}
	if _, err := os.Stat(filepath.Join(f.session.MediaDir, "gato_1.png")); err != nil {
		t.Errorf("Image missing from media directory: %v", err)
	}
}

func TestApproveEditsWin(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal"}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))
	f.writeTempImage(t, "Gato", "gato_1.png")

	err := f.session.Approve(context.Background(), Fields{
		Definition: "a small domestic feline",
		Sentence:   "Mi gato come mucho.",
	})
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	row := f.sink.Cards[0]
	if row.Definition != "a small domestic feline" {
		t.Errorf("Edited definition lost: %q", row.Definition)
	}
	if row.Sentence != "Mi gato come mucho." {
		t.Errorf("Edited sentence lost: %q", row.Sentence)
	}
}

func TestApproveSinkFailureKeepsRowPending(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal"}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))
	f.writeTempImage(t, "Gato", "gato_1.png")
	f.sink.Err = errors.New("anki is not running")

	err := f.session.Approve(context.Background(), Fields{Definition: "cat"})
	if err == nil {
		t.Fatal("Expected sink failure error")
	}
	if len(f.src.Done) != 0 {
		t.Error("Source row marked done despite sink failure")
	}
	if f.session.Index() != 0 {
		t.Error("Cursor advanced despite sink failure")
	}
}

func TestRegenerateTextSetsForceFlag(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal"}})
	f.store.Update("Gato", card.TextPatch("cat", "old", "old", "old"))
	f.session.Tick()

	f.text.Text = &textgen.CardText{
		Definition:  "a feline",
		Sentence:    "nuevo",
		Translation: "new",
		Scenario:    "new scene",
	}
	if err := f.session.RegenerateText(context.Background(), "make it simpler"); err != nil {
		t.Fatalf("RegenerateText failed: %v", err)
	}

	if len(f.text.Calls) != 1 || f.text.Calls[0].Instruction != "make it simpler" {
		t.Errorf("Instruction not forwarded: %+v", f.text.Calls)
	}

	// The next tick must overwrite the non-empty visible fields.
	d, ch := f.session.Tick()
	if !ch.Text {
		t.Fatal("Expected a text repaint after regeneration")
	}
	if d.Definition != "a feline" {
		t.Errorf("Definition = %q, want %q", d.Definition, "a feline")
	}

	// The force flag is one-shot.
	_, ch = f.session.Tick()
	if ch.Text {
		t.Error("Force flag was observed twice")
	}
}

func TestRegenerateImageRecoversFromContentFilter(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal"}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))
	f.store.Update("Gato", card.Patch{
		ImageError: card.String(prefetch.ImageErrorMessage(imagegen.ErrContentFiltered)),
	})

	d, _ := f.session.Tick()
	if d.ImageError == "" {
		t.Fatal("Error not displayed")
	}
	if err := f.session.Approve(context.Background(), Fields{}); !errors.Is(err, ErrImageError) {
		t.Fatalf("Expected ErrImageError, got %v", err)
	}

	if err := f.session.RegenerateImage(context.Background(), "a cat sleeping peacefully"); err != nil {
		t.Fatalf("RegenerateImage failed: %v", err)
	}

	st, _ := f.store.Get("Gato")
	if st.ImageError != "" {
		t.Errorf("Error not cleared: %q", st.ImageError)
	}
	if st.ImagePath == "" {
		t.Fatal("No image path after regeneration")
	}
	if st.Scenario != "a cat sleeping peacefully" {
		t.Errorf("Edited scenario not stored: %q", st.Scenario)
	}

	f.session.Tick()
	if err := f.session.Approve(context.Background(), Fields{Definition: "cat"}); err != nil {
		t.Fatalf("Approve failed after recovery: %v", err)
	}
}

func TestRegenerateImageDeletesPreviousTemp(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal"}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))
	old := f.writeTempImage(t, "Gato", "gato_old.png")

	if err := f.session.RegenerateImage(context.Background(), "a sleeping cat"); err != nil {
		t.Fatalf("RegenerateImage failed: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Previous temp image was not deleted")
	}
}

func TestExitDeletesUnapprovedTempImages(t *testing.T) {
	items := []source.QueueItem{
		{Text: "Gato", Hint: "animal"},
		{Text: "Perro", Hint: "animal"},
	}
	f := newSessionFixture(t, items)
	for _, item := range items {
		f.store.Update(item.Text, card.TextPatch("def", "sent", "trans", "scene"))
	}
	gatoImg := f.writeTempImage(t, "Gato", "gato_1.png")
	perroImg := f.writeTempImage(t, "Perro", "perro_1.png")

	if err := f.session.Approve(context.Background(), Fields{Definition: "cat"}); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	f.session.Exit()

	// The approved card's image lives in the media dir; the abandoned one
	// is gone.
	if _, err := os.Stat(filepath.Join(f.session.MediaDir, "gato_1.png")); err != nil {
		t.Errorf("Approved image missing: %v", err)
	}
	if _, err := os.Stat(perroImg); !os.IsNotExist(err) {
		t.Error("Unapproved temp image survived exit")
	}
	if _, err := os.Stat(gatoImg); !os.IsNotExist(err) {
		t.Error("Approved temp image should have been moved away already")
	}

	if len(f.sink.Cards) != 1 {
		t.Errorf("Expected the committed row to remain, got %d rows", len(f.sink.Cards))
	}
	if len(f.src.Done) != 1 {
		t.Errorf("Expected one done mark to remain, got %d", len(f.src.Done))
	}
}

func TestApproveRetriesAfterSinkRecovery(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal", Row: 2}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))
	f.writeTempImage(t, "Gato", "gato_1.png")
	f.sink.Err = errors.New("anki is not running")

	if err := f.session.Approve(context.Background(), Fields{Definition: "cat"}); err == nil {
		t.Fatal("Expected sink failure error")
	}

	f.sink.Err = nil
	if err := f.session.Approve(context.Background(), Fields{Definition: "cat"}); err != nil {
		t.Fatalf("Retry after sink recovery failed: %v", err)
	}

	if len(f.sink.Cards) != 1 || f.sink.Cards[0].ImageFile != "gato_1.png" {
		t.Fatalf("Unexpected sink rows: %+v", f.sink.Cards)
	}
	if len(f.src.Done) != 1 || f.src.Done[0].Row != 2 {
		t.Errorf("Source row not marked done after retry: %+v", f.src.Done)
	}
	if _, err := os.Stat(filepath.Join(f.session.MediaDir, "gato_1.png")); err != nil {
		t.Errorf("Image missing from media directory: %v", err)
	}
	if !f.session.Complete() {
		t.Error("Session should report complete after the retry")
	}
}

func TestApproveResolvesDuplicateQueueRows(t *testing.T) {
	items := []source.QueueItem{
		{Text: "Perro", Hint: "animal", Row: 2},
		{Text: "Gato", Hint: "animal", Row: 3},
		{Text: "Perro", Hint: "animal", Row: 4},
	}
	f := newSessionFixture(t, items)
	f.store.Update("Perro", card.TextPatch("dog", "El perro ladra.", "The dog barks.", "a barking dog"))
	f.writeTempImage(t, "Perro", "perro_1.png")

	if err := f.session.Approve(context.Background(), Fields{Definition: "dog"}); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if len(f.sink.Cards) != 1 {
		t.Fatalf("Expected 1 sink row for the duplicated word, got %d", len(f.sink.Cards))
	}
	rows := make(map[int]bool)
	for _, d := range f.src.Done {
		rows[d.Row] = true
	}
	if !rows[2] || !rows[4] || rows[3] {
		t.Errorf("Wrong rows marked done: %+v", f.src.Done)
	}
	if item, _ := f.session.Current(); item.Text != "Gato" {
		t.Errorf("Cursor on %q, want Gato", item.Text)
	}

	// Skipping the remaining word passes over the committed duplicate.
	f.session.Skip()
	if !f.session.Complete() {
		t.Errorf("Index = %d, want past the end", f.session.Index())
	}
}

// blockingImageGenerator parks inside Generate until released, standing
// in for a slow API call.
type blockingImageGenerator struct {
	entered  chan struct{}
	released chan struct{}
}

func (b *blockingImageGenerator) Generate(_ context.Context, _, _, _ string) (string, error) {
	close(b.entered)
	<-b.released
	return "", errors.New("call abandoned")
}

func TestTickNotBlockedByInFlightImageCall(t *testing.T) {
	f := newSessionFixture(t, []source.QueueItem{{Text: "Gato", Hint: "animal"}})
	f.store.Update("Gato", card.TextPatch("cat", "El gato duerme.", "The cat sleeps.", "a sleeping cat"))

	gen := &blockingImageGenerator{
		entered:  make(chan struct{}),
		released: make(chan struct{}),
	}
	f.session.image = gen

	regenDone := make(chan struct{})
	go func() {
		f.session.RegenerateImage(context.Background(), "a sleeping cat")
		close(regenDone)
	}()
	<-gen.entered

	tickDone := make(chan struct{})
	go func() {
		f.session.Tick()
		f.session.Current()
		f.session.Displayed()
		close(tickDone)
	}()

	select {
	case <-tickDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Tick blocked behind an in-flight image call")
	}

	close(gen.released)
	<-regenDone
}
