package refdata

// View bundles the user and instrument stores into the single read-only
// lookup surface the book consumes.
type View struct {
	*Users
	*Instruments
}

// NewView wraps the stores. Both must be non-nil.
func NewView(users *Users, instruments *Instruments) View {
	return View{Users: users, Instruments: instruments}
}
