package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FieldType describes input type.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldFile
)

// Field defines a CLI input field.
type Field struct {
	Name       string
	Aliases    []string
	Prompt     string
	Type       FieldType
	Required   bool
	Positional bool
}

// Command defines a CLI command binding.
type Command struct {
	Name    string
	Action  string
	Summary string
	Fields  []Field
}

// Key is the registry key, "name" or "name action".
func (c Command) Key() string {
	if c.Action == "" {
		return c.Name
	}
	return c.Name + " " + c.Action
}

// Usage renders a one-line synopsis.
func (c Command) Usage() string {
	parts := []string{c.Key()}
	for _, f := range c.Fields {
		var part string
		switch {
		case f.Positional:
			part = "<" + f.Name + ">"
		default:
			part = f.Name + "=..."
		}
		if !f.Required {
			part = "[" + part + "]"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

func ParseInt(value string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	return int(n), err
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}
