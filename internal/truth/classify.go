package truth

import "github.com/roach88/ndconvert/internal/record"

// Interaction mode codes.
const (
	ModeQE      int32 = 0
	ModeRES     int32 = 1
	ModeDIS     int32 = 2
	ModeCOH     int32 = 3
	ModeCOHQE   int32 = 4
	ModeMEC     int32 = 10
	ModeUnknown int32 = 1000
)

// Classify maps a vertex's channel flags to a mode code and reports whether
// the interaction is charged current.
//
// The flags overlap in real files, so the rules run in a fixed order and a
// later match overrides an earlier one: QE, RES, DIS, COH, COH+QE, MEC.
func Classify(v record.Vertex) (code int32, isCC bool) {
	code = ModeUnknown
	if v.IsQES {
		code = ModeQE
	}
	if v.IsRES {
		code = ModeRES
	}
	if v.IsDIS {
		code = ModeDIS
	}
	if v.IsCOH {
		code = ModeCOH
	}
	if v.IsCOH && v.IsQES {
		code = ModeCOHQE
	}
	if v.IsMEC {
		code = ModeMEC
	}
	return code, v.IsCC
}

// CCNC encodes the current type for output: 0 is charged current, 1 is
// neutral current.
func CCNC(isCC bool) int32 {
	if isCC {
		return 0
	}
	return 1
}
