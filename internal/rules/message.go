// internal/rules/message.go
package rules

import "regexp"

/*
 * Advisory message rendering.
 *
 * A rule's Message is a template. Each {field.path} placeholder is parsed as a
 * field path and resolved against the evaluation context with the same scheme
 * conditions use, then rendered through textOf.
 *
 * Placeholders that fail to parse or resolve to the absent sentinel are left
 * verbatim, so a missing fact shows up in the advisory text instead of
 * disappearing. Rendering never fails.
 */

// placeholderPattern matches {dotted.path} placeholders in message templates.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_\-]+(?:\.[A-Za-z0-9_\-]+)*)\}`)

// RenderMessage substitutes {field.path} placeholders in template with values
// resolved from data. Placeholders that do not resolve are left verbatim.
func RenderMessage(template string, data map[string]any) string {
	if template == "" {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(placeholder string) string {
		field := placeholder[1 : len(placeholder)-1]
		path, err := ParseFieldPath(field)
		if err != nil {
			return placeholder
		}
		v := Resolve(path, data)
		if v.IsAbsent() {
			return placeholder
		}
		return textOf(v)
	})
}
