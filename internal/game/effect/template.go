package effect

import "strings"

// Render substitutes {{name}} and {name} placeholders in tpl with values from
// vars. Placeholders with no matching key render as empty strings, so partial
// variable maps never leak braces into player-visible text.
func Render(tpl string, vars map[string]string) string {
	if tpl == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(tpl))
	for i := 0; i < len(tpl); {
		if tpl[i] != '{' {
			b.WriteByte(tpl[i])
			i++
			continue
		}
		double := i+1 < len(tpl) && tpl[i+1] == '{'
		start := i + 1
		if double {
			start = i + 2
		}
		end := strings.IndexByte(tpl[start:], '}')
		if end < 0 {
			b.WriteString(tpl[i:])
			break
		}
		name := strings.TrimSpace(tpl[start : start+end])
		next := start + end + 1
		if double {
			if next < len(tpl) && tpl[next] == '}' {
				next++
			} else {
				// Unbalanced "{{name}": treat literally.
				b.WriteString(tpl[i:next])
				i = next
				continue
			}
		}
		if name == "" || !identLike(name) {
			b.WriteString(tpl[i:next])
			i = next
			continue
		}
		b.WriteString(vars[name])
		i = next
	}
	return b.String()
}

func identLike(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
