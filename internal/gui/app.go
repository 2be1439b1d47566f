// Package gui is the desktop review form. One card is in focus at a
// time; a fixed-interval tick reconciles the shared card store into the
// editable fields, and the approve/regenerate buttons drive the session.
package gui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	fynetooltip "github.com/dweymouth/fyne-tooltip"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/tutin/immersion/internal"
	"codeberg.org/tutin/immersion/internal/review"
)

// reconcileInterval is how often the form re-reads the card store.
const reconcileInterval = 500 * time.Millisecond

// Application represents the review window
type Application struct {
	app    fyne.App
	window fyne.Window

	// UI elements
	wordLabel        *widget.Label
	definitionEntry  *FieldEntry
	sentenceEntry    *FieldEntry
	translationEntry *FieldEntry
	scenarioEntry    *FieldEntry
	instructionEntry *widget.Entry
	imageDisplay     *ImageDisplay
	statusLabel      *widget.Label
	queueLabel       *widget.Label

	// Action buttons
	approveBtn    *ttwidget.Button
	regenTextBtn  *ttwidget.Button
	regenImageBtn *ttwidget.Button

	// session is shared between the event loop and the short-lived
	// action goroutines. It serializes its own state and never holds
	// its lock across a network call, so the tick below can not stall
	// behind an in-flight approve or regenerate.
	session *review.Session

	ctx    context.Context
	cancel context.CancelFunc
	ticker *time.Ticker
	wg     sync.WaitGroup

	completeShown bool
}

// New creates the review window over a session whose prefetch workers are
// already running.
func New(session *review.Session) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	a := &Application{
		app:     app.NewWithID("org.codeberg.tutin.immersion"),
		session: session,
		ctx:     ctx,
		cancel:  cancel,
	}

	session.Status = func(msg string) {
		fyne.Do(func() {
			a.statusLabel.SetText(msg)
		})
	}

	a.setupUI()
	return a
}

// setupUI creates the main user interface
func (a *Application) setupUI() {
	a.window = a.app.NewWindow(fmt.Sprintf("Immersion v%s - Flashcard Review", internal.Version))
	a.window.Resize(fyne.NewSize(900, 700))

	a.wordLabel = widget.NewLabel("")
	a.wordLabel.TextStyle = fyne.TextStyle{Bold: true}
	a.wordLabel.Alignment = fyne.TextAlignCenter

	a.queueLabel = widget.NewLabel("")
	a.queueLabel.TextStyle = fyne.TextStyle{Italic: true}
	a.queueLabel.Alignment = fyne.TextAlignCenter

	a.definitionEntry = a.newField("Definition...")
	a.sentenceEntry = a.newField("Example sentence...")
	a.translationEntry = a.newField("Translation...")
	a.scenarioEntry = a.newField("Image scenario... Edit before regenerating the image.")

	a.instructionEntry = widget.NewEntry()
	a.instructionEntry.SetPlaceHolder("Optional instruction for text regeneration...")

	a.imageDisplay = NewImageDisplay()

	a.approveBtn = ttwidget.NewButtonWithIcon("Approve & Next", theme.ConfirmIcon(), a.onApprove)
	a.approveBtn.Importance = widget.HighImportance
	a.regenTextBtn = ttwidget.NewButtonWithIcon("Regenerate Text", theme.ViewRefreshIcon(), a.onRegenerateText)
	a.regenImageBtn = ttwidget.NewButtonWithIcon("Regenerate Image", theme.FileImageIcon(), a.onRegenerateImage)

	toolbar := container.NewHBox(
		a.regenTextBtn,
		a.regenImageBtn,
		widget.NewSeparator(),
		a.approveBtn,
	)

	fields := container.NewVBox(
		widget.NewLabel("Definition:"),
		a.definitionEntry,
		widget.NewLabel("Example sentence:"),
		a.sentenceEntry,
		widget.NewLabel("Translation:"),
		a.translationEntry,
		widget.NewLabel("Image scenario:"),
		a.scenarioEntry,
		widget.NewLabel("Regeneration instruction:"),
		a.instructionEntry,
	)

	body := container.NewHSplit(
		container.NewScroll(fields),
		a.imageDisplay,
	)
	body.SetOffset(0.55)

	a.statusLabel = widget.NewLabel("Ready")

	content := container.NewBorder(
		container.NewVBox(
			a.wordLabel,
			a.queueLabel,
			widget.NewSeparator(),
		),
		container.NewVBox(
			widget.NewSeparator(),
			toolbar,
			a.statusLabel,
		),
		nil, nil,
		body,
	)

	a.window.SetContent(fynetooltip.AddWindowToolTipLayer(content, a.window.Canvas()))

	a.approveBtn.SetToolTip("Commit this card and move to the next")
	a.regenTextBtn.SetToolTip("Rewrite all text fields, using the instruction if given")
	a.regenImageBtn.SetToolTip("Repaint the image from the scenario text")

	a.window.SetOnClosed(func() {
		a.cancel()
		if a.ticker != nil {
			a.ticker.Stop()
		}
		a.wg.Wait()
		a.session.Exit()
	})
}

func (a *Application) newField(placeholder string) *FieldEntry {
	entry := NewFieldEntry()
	entry.SetPlaceHolder(placeholder)
	entry.SetOnEscape(func() {
		a.window.Canvas().Unfocus()
	})
	return entry
}

// Run starts the reconciliation loop and shows the window.
func (a *Application) Run() {
	a.ticker = time.NewTicker(reconcileInterval)
	go func() {
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-a.ticker.C:
				fyne.Do(a.reconcile)
			}
		}
	}()

	fyne.Do(a.reconcile)
	a.window.ShowAndRun()
}

// reconcile runs one tick on the event loop: re-read the focused card's
// state and repaint only what changed.
func (a *Application) reconcile() {
	complete := a.session.Complete()
	item, _ := a.session.Current()
	index, total := a.session.Index(), a.session.Len()
	d, ch := a.session.Tick()

	if complete {
		a.showComplete()
		return
	}

	a.wordLabel.SetText(item.Text)
	a.queueLabel.SetText(fmt.Sprintf("Card %d of %d", index+1, total))

	if ch.Text {
		a.definitionEntry.SetText(d.Definition)
		a.sentenceEntry.SetText(d.Sentence)
		a.translationEntry.SetText(d.Translation)
		a.scenarioEntry.SetText(d.Scenario)
	}
	if ch.Image {
		if d.ImagePath != "" {
			a.imageDisplay.SetImage(d.ImagePath)
		} else if d.ImageError == "" {
			a.imageDisplay.SetGenerating()
		}
	}
	if ch.Error {
		if d.ImageError != "" {
			a.imageDisplay.SetError(d.ImageError)
			a.statusLabel.SetText(d.ImageError)
		} else if d.ImagePath == "" {
			a.imageDisplay.SetGenerating()
		}
	}
}

// showComplete notifies once and closes the window when dismissed.
func (a *Application) showComplete() {
	if a.completeShown {
		return
	}
	a.completeShown = true

	a.statusLabel.SetText("All cards reviewed")
	info := dialog.NewInformation("Session complete", "Every card in the queue has been reviewed.", a.window)
	info.SetOnClosed(func() {
		a.window.Close()
	})
	info.Show()
}

// fields reads the editable values as-is; reviewer edits win at commit.
func (a *Application) fields() review.Fields {
	return review.Fields{
		Definition:  a.definitionEntry.Text,
		Sentence:    a.sentenceEntry.Text,
		Translation: a.translationEntry.Text,
		Scenario:    a.scenarioEntry.Text,
	}
}

func (a *Application) setActionsEnabled(enabled bool) {
	if enabled {
		a.approveBtn.Enable()
		a.regenTextBtn.Enable()
		a.regenImageBtn.Enable()
	} else {
		a.approveBtn.Disable()
		a.regenTextBtn.Disable()
		a.regenImageBtn.Disable()
	}
}

// onApprove commits the focused card on a short-lived worker so the form
// stays responsive, then resets the fields for the next card.
func (a *Application) onApprove() {
	fields := a.fields()
	a.setActionsEnabled(false)
	a.statusLabel.SetText("Committing...")

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		err := a.session.Approve(a.ctx, fields)

		fyne.Do(func() {
			a.setActionsEnabled(true)

			switch {
			case errors.Is(err, review.ErrNoImage), errors.Is(err, review.ErrImageError):
				dialog.ShowInformation("Not approvable yet", err.Error(), a.window)
			case err != nil:
				dialog.ShowError(err, a.window)
			default:
				a.clearCard()
				a.reconcile()
			}
		})
	}()
}

// onRegenerateText re-runs the text step with the optional instruction.
// The force flag set by the session makes the next tick overwrite the
// visible fields.
func (a *Application) onRegenerateText() {
	instruction := a.instructionEntry.Text
	a.regenTextBtn.Disable()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		err := a.session.RegenerateText(a.ctx, instruction)

		fyne.Do(func() {
			a.regenTextBtn.Enable()
			if err != nil {
				dialog.ShowError(err, a.window)
				return
			}
			a.instructionEntry.SetText("")
		})
	}()
}

// onRegenerateImage repaints from the current, possibly edited, scenario
// text. This is also the recovery path after a content filter refusal.
func (a *Application) onRegenerateImage() {
	scenario := a.scenarioEntry.Text
	a.regenImageBtn.Disable()
	a.imageDisplay.SetGenerating()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		err := a.session.RegenerateImage(a.ctx, scenario)

		fyne.Do(func() {
			a.regenImageBtn.Enable()
			if err != nil {
				a.statusLabel.SetText(fmt.Sprintf("Image regeneration failed: %v", err))
			}
		})
	}()
}

// clearCard resets the form for the next card in the queue.
func (a *Application) clearCard() {
	a.definitionEntry.SetText("")
	a.sentenceEntry.SetText("")
	a.translationEntry.SetText("")
	a.scenarioEntry.SetText("")
	a.instructionEntry.SetText("")
	a.imageDisplay.SetGenerating()
}
