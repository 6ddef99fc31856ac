package domain

// State is the lifecycle position of a purchase document. States only move
// forward; ANULADA is terminal.
type State string

const (
	StateBorrador   State = "BORRADOR"
	StateValidada   State = "VALIDADA"
	StateConfirmada State = "CONFIRMADA"
	StateAnulada    State = "ANULADA"
)

// Editable reports whether header and lines may still be mutated.
func (s State) Editable() bool { return s == StateBorrador }

// Terminal reports whether no further transition is permitted.
func (s State) Terminal() bool { return s == StateAnulada }

// LineStatus marks whether a line is linked to a catalog product.
type LineStatus string

const (
	LineOK          LineStatus = "OK"
	LineSinVincular LineStatus = "SIN_VINCULAR"
)
