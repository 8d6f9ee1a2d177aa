package forms

import "strings"

// appendField adds one candidate name to a field list. Input is trimmed;
// empty strings and exact (case-sensitive) duplicates are rejected, leaving
// the list unchanged. Insertion order is preserved.
func appendField(fields []string, raw string) []string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return fields
	}
	for _, existing := range fields {
		if existing == name {
			return fields
		}
	}
	return append(fields, name)
}

// splitFieldInput turns raw field input into discrete candidates. A
// comma-containing paste is a bulk-add shortcut, not a single literal value.
func splitFieldInput(raw string) []string {
	if !strings.Contains(raw, ",") {
		return []string{raw}
	}
	return strings.Split(raw, ",")
}

// removeField removes the first exact match of name, preserving the order
// of everything else.
func removeField(fields []string, name string) []string {
	for i, existing := range fields {
		if existing == name {
			return append(fields[:i:i], fields[i+1:]...)
		}
	}
	return fields
}

// NormalizeFields prepares a backend-provided field list for editing. Some
// deployments store multiple fields as one comma-joined string; those are
// split into discrete entries. Blanks and duplicates are dropped either way.
func NormalizeFields(fields []string) []string {
	var raw []string
	if len(fields) == 1 && strings.Contains(fields[0], ",") {
		raw = strings.Split(fields[0], ",")
	} else {
		raw = fields
	}

	out := []string{}
	for _, f := range raw {
		out = appendField(out, f)
	}
	return out
}
