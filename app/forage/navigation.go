package forage

// Direction of patrol travel
type Direction int

const (
	Right Direction = iota
	Left
)

func (d Direction) String() string {
	if d == Left {
		return "LEFT"
	}
	return "RIGHT"
}

// AreaNavigation tracks the patrol position. Areas are numbered 1..total.
type AreaNavigation struct {
	Current   int
	Direction Direction
}

// Start returns the position after the start-position walk
func Start() AreaNavigation {
	return AreaNavigation{Current: 1, Direction: Right}
}

// Step flips direction at the patrol ends, then advances one area.
// It returns the direction to click. A single-area patrol never moves.
func (n *AreaNavigation) Step(total int) (Direction, bool) {
	if total <= 1 {
		return n.Direction, false
	}

	if n.Current >= total && n.Direction == Right {
		n.Direction = Left
	} else if n.Current <= 1 && n.Direction == Left {
		n.Direction = Right
	}

	if n.Direction == Right {
		n.Current++
	} else {
		n.Current--
	}
	return n.Direction, true
}
