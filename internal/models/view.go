package models

// Screen is the main view of the UI.
type Screen string

const (
	// ScreenInput shows the item entry form.
	ScreenInput Screen = "input"

	// ScreenBill shows the printable bill preview.
	ScreenBill Screen = "bill"
)

// View is display-only state. Changing it never touches bill data.
type View struct {
	Screen Screen `json:"screen"`

	// RateHidden hides the rate column in both tables and exports.
	RateHidden bool `json:"rateHidden"`

	// DragHidden hides the drag-handle column. It follows Screen
	// (hidden on the bill preview) and is forced on during export.
	DragHidden bool `json:"dragHidden"`
}

// DefaultView is the view at startup.
func DefaultView() View {
	return View{Screen: ScreenInput}
}
