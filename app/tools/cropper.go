package tools

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// CropperWidget displays a screenshot and lets the user drag out a rectangle.
// Selections are reported in image pixel coordinates.
type CropperWidget struct {
	widget.BaseWidget

	// State
	img        image.Image
	startPos   fyne.Position
	currentPos fyne.Position
	dragging   bool

	// UI Elements
	raster    *canvas.Image
	selection *canvas.Rectangle

	// Callback
	OnSelected func(rect image.Rectangle)
}

// NewCropperWidget creates a cropper over img
func NewCropperWidget(img image.Image, onSelected func(image.Rectangle)) *CropperWidget {
	c := &CropperWidget{
		img:        img,
		OnSelected: onSelected,
	}
	c.ExtendBaseWidget(c)

	c.raster = canvas.NewImageFromImage(img)
	c.raster.ScaleMode = canvas.ImageScalePixels // No smoothing, calibration needs exact pixels
	c.raster.FillMode = canvas.ImageFillContain

	c.selection = canvas.NewRectangle(color.RGBA{R: 255, A: 60})
	c.selection.StrokeColor = color.RGBA{R: 255, A: 255}
	c.selection.StrokeWidth = 2
	c.selection.Hide()

	return c
}

func (c *CropperWidget) CreateRenderer() fyne.WidgetRenderer {
	return &cropperRenderer{
		cropper: c,
		objects: []fyne.CanvasObject{c.raster, c.selection},
	}
}

// Dragged grows the selection
func (c *CropperWidget) Dragged(e *fyne.DragEvent) {
	if !c.dragging {
		c.dragging = true
		c.startPos = e.Position.Subtract(e.Dragged)
		c.selection.Show()
	}
	c.currentPos = e.Position
	c.Refresh()
}

// DragEnd reports the selection. It stays visible until the next tap.
func (c *CropperWidget) DragEnd() {
	c.dragging = false
	c.Refresh()
	if c.OnSelected == nil {
		return
	}
	if r := c.imageSelection(); !r.Empty() {
		c.OnSelected(r)
	}
}

// Tapped resets the selection. A bare tap selects a single pixel, which is
// how points are calibrated.
func (c *CropperWidget) Tapped(e *fyne.PointEvent) {
	c.startPos = e.Position
	c.currentPos = e.Position
	c.selection.Hide()
	c.Refresh()

	if c.OnSelected == nil {
		return
	}
	if p, ok := c.toImage(e.Position); ok {
		c.OnSelected(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
}

func (c *CropperWidget) Cursor() desktop.Cursor {
	return desktop.CrosshairCursor
}

// viewRect is the on-widget selection rectangle
func (c *CropperWidget) viewRect() (fyne.Position, fyne.Size) {
	minX, maxX := min(c.startPos.X, c.currentPos.X), max(c.startPos.X, c.currentPos.X)
	minY, maxY := min(c.startPos.Y, c.currentPos.Y), max(c.startPos.Y, c.currentPos.Y)
	return fyne.NewPos(minX, minY), fyne.NewSize(maxX-minX, maxY-minY)
}

// imageArea is where ImageFillContain draws the image inside the widget
func (c *CropperWidget) imageArea() (fyne.Position, fyne.Size) {
	w, h := c.Size().Width, c.Size().Height
	if w == 0 || h == 0 {
		return fyne.Position{}, fyne.Size{}
	}

	imgW := float32(c.img.Bounds().Dx())
	imgH := float32(c.img.Bounds().Dy())
	aspect := imgW / imgH

	if w/h > aspect {
		// View is wider: fit height
		drawW := h * aspect
		return fyne.NewPos((w-drawW)/2, 0), fyne.NewSize(drawW, h)
	}
	// View is taller: fit width
	drawH := w / aspect
	return fyne.NewPos(0, (h-drawH)/2), fyne.NewSize(w, drawH)
}

// toImage maps a widget position to an image pixel
func (c *CropperWidget) toImage(p fyne.Position) (image.Point, bool) {
	origin, size := c.imageArea()
	if size.Width == 0 || size.Height == 0 {
		return image.Point{}, false
	}
	scaleX := float32(c.img.Bounds().Dx()) / size.Width
	scaleY := float32(c.img.Bounds().Dy()) / size.Height

	pt := image.Pt(int((p.X-origin.X)*scaleX), int((p.Y-origin.Y)*scaleY)).Add(c.img.Bounds().Min)
	return pt, pt.In(c.img.Bounds())
}

// imageSelection maps the dragged rectangle to image pixels, clipped to the image
func (c *CropperWidget) imageSelection() image.Rectangle {
	origin, size := c.imageArea()
	if size.Width == 0 || size.Height == 0 {
		return image.Rectangle{}
	}
	pos, sel := c.viewRect()

	x0 := max(origin.X, pos.X)
	y0 := max(origin.Y, pos.Y)
	x1 := min(origin.X+size.Width, pos.X+sel.Width)
	y1 := min(origin.Y+size.Height, pos.Y+sel.Height)
	if x1 <= x0 || y1 <= y0 {
		return image.Rectangle{}
	}

	scaleX := float32(c.img.Bounds().Dx()) / size.Width
	scaleY := float32(c.img.Bounds().Dy()) / size.Height
	r := image.Rect(
		int((x0-origin.X)*scaleX),
		int((y0-origin.Y)*scaleY),
		int((x1-origin.X)*scaleX),
		int((y1-origin.Y)*scaleY),
	).Add(c.img.Bounds().Min)

	// Float rounding can overshoot by a pixel
	return r.Intersect(c.img.Bounds())
}

// --- Renderer ---

type cropperRenderer struct {
	cropper *CropperWidget
	objects []fyne.CanvasObject
}

func (r *cropperRenderer) Layout(s fyne.Size) {
	r.objects[0].Resize(s)
	r.objects[0].Move(fyne.NewPos(0, 0))
	r.placeSelection()
}

func (r *cropperRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (r *cropperRenderer) Refresh() {
	r.placeSelection()
	canvas.Refresh(r.cropper)
}

func (r *cropperRenderer) placeSelection() {
	pos, size := r.cropper.viewRect()
	r.objects[1].Move(pos)
	r.objects[1].Resize(size)
}

func (r *cropperRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *cropperRenderer) Destroy() {}
