package prefs

// Themes offered by the editor, in toggle order.
var Themes = []string{"solarized_light", "solarized_dark", "monokai"}

const (
	FontSizeStep = 2
	MinFontSize  = 8
)

// NextTheme returns the theme after current in Themes. Unknown themes
// restart the cycle.
func NextTheme(current string) string {
	for i, t := range Themes {
		if t == current {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func IncreaseFontSize(size int) int {
	return size + FontSizeStep
}

// DecreaseFontSize never goes below MinFontSize.
func DecreaseFontSize(size int) int {
	return max(MinFontSize, size-FontSizeStep)
}
