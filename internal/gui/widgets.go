package gui

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// ImageDisplay is a custom widget for the card illustration preview
type ImageDisplay struct {
	widget.BaseWidget

	container   *fyne.Container
	imageCanvas *canvas.Image
	imageLabel  *widget.Label

	currentImage string
}

// NewImageDisplay creates a new image display widget
func NewImageDisplay() *ImageDisplay {
	d := &ImageDisplay{}

	d.imageCanvas = canvas.NewImageFromResource(nil)
	d.imageCanvas.FillMode = canvas.ImageFillContain
	d.imageCanvas.SetMinSize(fyne.NewSize(300, 225))

	d.imageLabel = widget.NewLabel("No image")
	d.imageLabel.Alignment = fyne.TextAlignCenter
	d.imageLabel.Wrapping = fyne.TextWrapWord

	d.container = container.NewBorder(
		nil,
		d.imageLabel,
		nil, nil,
		d.imageCanvas,
	)

	d.ExtendBaseWidget(d)
	return d
}

// CreateRenderer implements fyne.Widget
func (d *ImageDisplay) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(d.container)
}

// SetImage loads and displays the image at the given path
func (d *ImageDisplay) SetImage(imagePath string) {
	if imagePath == "" {
		d.Clear()
		return
	}

	d.currentImage = imagePath

	file, err := os.Open(imagePath)
	if err != nil {
		d.imageLabel.SetText(fmt.Sprintf("Error loading image: %v", err))
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		d.imageLabel.SetText(fmt.Sprintf("Error decoding image: %v", err))
		return
	}

	d.imageCanvas.Image = img
	d.imageCanvas.Refresh()
	d.imageLabel.SetText(filepath.Base(imagePath))
}

// Clear clears the display
func (d *ImageDisplay) Clear() {
	d.currentImage = ""
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.imageLabel.SetText("No image")
}

// SetGenerating shows the generating placeholder
func (d *ImageDisplay) SetGenerating() {
	d.currentImage = ""
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.imageLabel.SetText("Generating...")
}

// SetError shows an image generation failure message in place of the image
func (d *ImageDisplay) SetError(message string) {
	d.currentImage = ""
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.imageLabel.SetText(message)
}
