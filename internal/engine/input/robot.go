package input

import (
	"image"

	"github.com/go-vgo/robotgo"
)

// Robot drives the real cursor through robotgo
type Robot struct{}

// NewRobot returns the system pointer
func NewRobot() *Robot {
	return &Robot{}
}

// Position returns the current cursor position
func (r *Robot) Position() image.Point {
	x, y := robotgo.Location()
	return image.Point{X: x, Y: y}
}

// MoveRelative shifts the cursor by dx, dy
func (r *Robot) MoveRelative(dx, dy int) {
	robotgo.MoveRelative(dx, dy)
}

// MoveTo places the cursor at an absolute position
func (r *Robot) MoveTo(p image.Point) {
	robotgo.Move(p.X, p.Y)
}

// Click presses the left button
func (r *Robot) Click() {
	robotgo.Click("left")
}
