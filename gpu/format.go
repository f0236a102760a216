package gpu

import "fmt"

// Format is a render-target storage format.
type Format int

const (
	FormatNone Format = iota
	R16F
	RG16F
	RGBA16F
	// RGBA8 is the baseline every device must render into. Signed values
	// stored in it go through Pack/Unpack.
	RGBA8
)

var formatNames = map[Format]string{
	FormatNone: "none",
	R16F:       "r16f",
	RG16F:      "rg16f",
	RGBA16F:    "rgba16f",
	RGBA8:      "rgba8",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Channels is the number of stored channels.
func (f Format) Channels() int {
	switch f {
	case R16F:
		return 1
	case RG16F:
		return 2
	case RGBA16F, RGBA8:
		return 4
	}
	return 0
}

// Float reports whether f stores unclamped floating-point values.
func (f Format) Float() bool {
	return f == R16F || f == RG16F || f == RGBA16F
}

// candidates is the ordered fallback chain. Resolution starts at the
// requested format and walks toward the baseline.
var candidates = []Format{R16F, RG16F, RGBA16F, RGBA8}

// Candidates returns the fallback chain starting at want.
func Candidates(want Format) []Format {
	for i, f := range candidates {
		if f == want {
			return append([]Format(nil), candidates[i:]...)
		}
	}
	return []Format{RGBA8}
}

// Resolve picks the first renderable format in the chain starting at want.
func Resolve(d Device, want Format) (Format, error) {
	for _, f := range Candidates(want) {
		if d.Supports(f) {
			return f, nil
		}
	}
	return FormatNone, fmt.Errorf("resolving %s: %w", want, ErrNoFormat)
}
