package command

import (
	"fmt"
	"sort"
	"strings"
)

// Registry returns all CLI commands keyed by Command.Key.
func Registry() map[string]Command {
	commands := []Command{
		{
			Name:    "run",
			Summary: "run the buffer on the judge",
			Fields: []Field{
				{Name: "stdin", Aliases: []string{"input"}, Prompt: "stdin", Type: FieldString},
				{Name: "stdin_file", Aliases: []string{"input_file"}, Prompt: "stdin_file", Type: FieldFile},
			},
		},
		{Name: "fmt", Summary: "format the buffer"},
		{Name: "save", Summary: "persist the buffer"},
		{
			Name:    "open",
			Summary: "load a source file into the buffer",
			Fields: []Field{
				{Name: "file", Aliases: []string{"path"}, Prompt: "file", Type: FieldFile, Required: true, Positional: true},
			},
		},
		{Name: "edit", Summary: "edit the buffer in $EDITOR"},
		{Name: "show", Action: "code", Summary: "print the buffer"},
		{Name: "show", Action: "prefs", Summary: "print preferences"},
		{Name: "show", Action: "config", Summary: "print the effective config"},
		{
			Name:    "set",
			Action:  "theme",
			Summary: "change the editor theme",
			Fields:  []Field{{Name: "value", Prompt: "theme", Type: FieldString, Required: true, Positional: true}},
		},
		{
			Name:    "set",
			Action:  "font",
			Summary: "change the font size",
			Fields:  []Field{{Name: "value", Prompt: "font size", Type: FieldInt, Required: true, Positional: true}},
		},
		{
			Name:    "set",
			Action:  "lang",
			Summary: "change the buffer language",
			Fields:  []Field{{Name: "value", Aliases: []string{"language"}, Prompt: "language", Type: FieldString, Required: true, Positional: true}},
		},
		{Name: "font", Action: "+", Summary: "increase the font size"},
		{Name: "font", Action: "-", Summary: "decrease the font size"},
		{Name: "theme", Action: "toggle", Summary: "cycle through themes"},
		{
			Name:    "snippet",
			Action:  "save",
			Summary: "store the buffer as a named snippet",
			Fields:  []Field{{Name: "name", Prompt: "snippet name", Type: FieldString, Required: true, Positional: true}},
		},
		{
			Name:    "snippet",
			Action:  "load",
			Summary: "replace the buffer with a snippet",
			Fields:  []Field{{Name: "name", Prompt: "snippet name", Type: FieldString, Required: true, Positional: true}},
		},
		{Name: "snippet", Action: "list", Summary: "list snippets, newest first"},
		{
			Name:    "snippet",
			Action:  "delete",
			Summary: "remove a snippet",
			Fields:  []Field{{Name: "name", Prompt: "snippet name", Type: FieldString, Required: true, Positional: true}},
		},
		{
			Name:    "key",
			Summary: "send a key chord such as ctrl+shift+f",
			Fields:  []Field{{Name: "chord", Prompt: "chord", Type: FieldString, Required: true, Positional: true}},
		},
	}

	registry := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		registry[cmd.Key()] = cmd
	}
	return registry
}

// Resolve finds the command named by tokens and parses the remaining tokens
// as key=value pairs or positional values.
func Resolve(registry map[string]Command, tokens []string) (Command, Params, error) {
	if len(tokens) == 0 {
		return Command{}, nil, fmt.Errorf("empty command")
	}
	name := strings.ToLower(tokens[0])
	rest := tokens[1:]

	cmd, ok := Command{}, false
	if len(rest) > 0 {
		cmd, ok = registry[name+" "+strings.ToLower(rest[0])]
		if ok {
			rest = rest[1:]
		}
	}
	if !ok {
		cmd, ok = registry[name]
	}
	if !ok {
		if actions := Actions(registry, name); len(actions) > 0 {
			return Command{}, nil, fmt.Errorf("usage: %s %s", name, strings.Join(actions, "|"))
		}
		return Command{}, nil, fmt.Errorf("unknown command: %s", name)
	}

	params := Params{}
	positional := make([]Field, 0, len(cmd.Fields))
	for _, f := range cmd.Fields {
		if f.Positional {
			positional = append(positional, f)
		}
	}
	for _, token := range rest {
		if key, value, found := strings.Cut(token, "="); found && key != "" {
			params.Set(key, value)
			continue
		}
		if len(positional) == 0 {
			return Command{}, nil, fmt.Errorf("invalid param: %s", token)
		}
		params.Set(positional[0].Name, token)
		positional = positional[1:]
	}
	params.Canonicalize(cmd.Fields)
	return cmd, params, nil
}

// Actions lists the actions registered under name.
func Actions(registry map[string]Command, name string) []string {
	var actions []string
	for _, cmd := range registry {
		if cmd.Name == name && cmd.Action != "" {
			actions = append(actions, cmd.Action)
		}
	}
	sort.Strings(actions)
	return actions
}

// Sorted returns the commands ordered by key.
func Sorted(registry map[string]Command) []Command {
	out := make([]Command, 0, len(registry))
	for _, cmd := range registry {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
