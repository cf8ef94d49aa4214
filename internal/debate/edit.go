package debate

import "time"

// EditWindow is how long after creation an author may revise an argument.
const EditWindow = 5 * time.Minute

// Editable reports whether a is still inside its edit window at now.
func Editable(a Argument, now time.Time) bool {
	return now.Sub(a.CreatedAt) <= EditWindow
}

// CanEdit checks that userID may change a's text at now.
func CanEdit(a Argument, userID string, open bool, now time.Time) error {
	if !open {
		return ErrDebateClosed
	}
	if userID == "" || a.Author.ID != userID {
		return ErrNotAuthor
	}
	if !Editable(a, now) {
		return ErrEditWindowExpired
	}
	return nil
}

// CanDelete applies the same rules as CanEdit.
func CanDelete(a Argument, userID string, open bool, now time.Time) error {
	return CanEdit(a, userID, open, now)
}

// AuthoredBy returns the first argument written by userID, optionally
// restricted to one side.
func AuthoredBy(args []Argument, userID string, side Side) (Argument, bool) {
	if userID == "" {
		return Argument{}, false
	}
	for _, a := range args {
		if a.Author.ID == userID && (side == "" || a.Side == side) {
			return a, true
		}
	}
	return Argument{}, false
}
