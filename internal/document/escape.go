package document

import (
	"slices"
	"strings"

	"github.com/inkwell-ai/inkwell/internal/tagparse"
)

// EscapeResponse neutralizes tags in AI output by upper-casing the
// name of every tag either replacement table knows, so splicing the
// text back into the note can never trigger another round of
// processing. Only outermost occurrences need rewriting: a nested tag
// sits inside its parent's span and is skipped by the scanner anyway.
// image! is left alone, the conversation codec owns it.
func EscapeResponse(response string) string {
	names := slices.Concat(outerTagNames, paramTags, contentTags)
	reps := make(map[string]tagparse.ReplaceFunc, len(names))
	for _, name := range names {
		upper := strings.ToUpper(name)
		reps[name] = func(value, inner *string, _ any) string {
			if inner == nil {
				return "<" + upper + "!" + deref(value) + ">"
			}
			return "<" + upper + "!" + deref(value) + ">" + *inner + "</" + upper + "!>"
		}
	}
	escaped, _ := tagparse.Process(response, reps, nil)
	return escaped
}
