package listing

import "fmt"

// Category is the career-value class of a listing. Lower values are worth more.
type Category int

const (
	Principal Category = iota + 1
	StudentFilm
	Commercial
	ShortIndie
	Background
	OpenCall
)

var categories = []Category{Principal, StudentFilm, Commercial, ShortIndie, Background, OpenCall}

// Categories returns every category in priority order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is one of the six known categories.
func (c Category) Valid() bool {
	return c >= Principal && c <= OpenCall
}

// Less orders categories by career value, highest first.
func (c Category) Less(other Category) bool {
	return c < other
}

func (c Category) String() string {
	switch c {
	case Principal:
		return "principal"
	case StudentFilm:
		return "student_film"
	case Commercial:
		return "commercial"
	case ShortIndie:
		return "short_indie"
	case Background:
		return "background"
	case OpenCall:
		return "open_call"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Label is the digest section heading.
func (c Category) Label() string {
	switch c {
	case Principal:
		return "Principal / Speaking Roles"
	case StudentFilm:
		return "Student Films (Top Schools)"
	case Commercial:
		return "Commercials"
	case ShortIndie:
		return "Short Films & Indie Features"
	case Background:
		return "Background / Extra Work"
	case OpenCall:
		return "Open Calls & Workshops"
	default:
		return c.String()
	}
}

// Blurb is a one-line note on why the category matters.
func (c Category) Blurb() string {
	switch c {
	case Principal:
		return "Builds your demo reel"
	case StudentFilm:
		return "Festival credits open doors"
	case Commercial:
		return "Visibility + SAG vouchers"
	case ShortIndie:
		return "Resume credits & networking"
	case Background:
		return "Set experience + SAG vouchers"
	case OpenCall:
		return "Networking & practice"
	default:
		return ""
	}
}
