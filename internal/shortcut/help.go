package shortcut

import "strings"

// Shortcut is one row of the help table.
type Shortcut struct {
	Keys        string `json:"keys"`
	Description string `json:"description"`
}

var table = []Shortcut{
	{"Ctrl+S", "Save"},
	{"Ctrl+R", "Run"},
	{"Ctrl+Shift+F", "Format"},
	{"Ctrl+/", "Toggle Comment"},
	{"Ctrl+F", "Find"},
	{"Ctrl+H", "Replace"},
	{"Ctrl+Z", "Undo"},
	{"Ctrl+Y", "Redo"},
	{"Ctrl+A", "Select All"},
	{"Ctrl+]", "Indent"},
	{"Ctrl+[", "Outdent"},
	{"Ctrl+Shift+L", "Toggle Light/Dark Theme"},
	{"Ctrl+=", "Increase Font Size"},
	{"Ctrl+-", "Decrease Font Size"},
}

// Table returns a copy of the shortcut table.
func Table() []Shortcut {
	return append([]Shortcut(nil), table...)
}

// Help renders the table as "keys: description" lines.
func Help() string {
	lines := make([]string, 0, len(table))
	for _, s := range table {
		lines = append(lines, s.Keys+": "+s.Description)
	}
	return strings.Join(lines, "\n")
}
