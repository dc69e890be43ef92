package skeleton

import "fmt"

// BlendMode is the renderer-independent blend mode of a slot.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendAdditive
	BlendMultiply
	BlendScreen
)

var blendModeNames = [...]string{
	BlendNormal:   "normal",
	BlendAdditive: "additive",
	BlendMultiply: "multiply",
	BlendScreen:   "screen",
}

// String returns the lowercase name used in scene files.
func (b BlendMode) String() string {
	if b >= 0 && int(b) < len(blendModeNames) {
		return blendModeNames[b]
	}
	return fmt.Sprintf("BlendMode(%d)", int(b))
}

// ParseBlendMode parses a scene file blend mode name. The empty string is
// treated as normal.
func ParseBlendMode(s string) (BlendMode, error) {
	if s == "" {
		return BlendNormal, nil
	}
	for i, name := range blendModeNames {
		if name == s {
			return BlendMode(i), nil
		}
	}
	return BlendNormal, fmt.Errorf("unknown blend mode %q", s)
}
