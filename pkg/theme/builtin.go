package theme

// registerBuiltins installs the built-in palettes. "default" follows the
// i3status convention of coloring only abnormal states; "plain" disables
// coloring entirely for bars that theme blocks themselves.
func registerBuiltins() {
	RegisterTheme(Theme{
		Name:     "default",
		Idle:     "",
		Info:     "#81a1c1",
		Good:     "#a3be8c",
		Warning:  "#ebcb8b",
		Critical: "#bf616a",
		Error:    "#bf616a",
	})

	RegisterTheme(Theme{
		Name: "plain",
	})

	RegisterTheme(Theme{
		Name:     "gruvbox",
		Idle:     "#ebdbb2",
		Info:     "#83a598",
		Good:     "#b8bb26",
		Warning:  "#fabd2f",
		Critical: "#fb4934",
		Error:    "#fb4934",
	})

	RegisterTheme(Theme{
		Name:     "solarized",
		Idle:     "#839496",
		Info:     "#268bd2",
		Good:     "#859900",
		Warning:  "#b58900",
		Critical: "#dc322f",
		Error:    "#dc322f",
	})
}
