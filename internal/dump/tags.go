package dump

import (
	"regexp"
	"strings"
)

// DefaultCMSNamespace is the namespace configuration types are qualified with.
const DefaultCMSNamespace = "cms"

// tagArgs matches one to three quoted arguments and the closing parenthesis.
const tagArgs = `\s*\(\s*["']([^"']+)["']\s*(?:,\s*["']([^"']*)["']\s*)?(?:,\s*["']([^"']*)["']\s*)?\)`

// patterns holds the recognizers for one configuration namespace.
type patterns struct {
	namespace string

	singleTag *regexp.Regexp // field = cms.InputTag("m", "i", "p")
	listTag   *regexp.Regexp // field = cms.VInputTag(
	innerTag  *regexp.Regexp // cms.InputTag("m", ...) inside a list block
	quoted    *regexp.Regexp // "literal" or 'literal'
	scalar    *regexp.Regexp // field = cms.int32(value)
}

var defaultPatterns = newPatterns(DefaultCMSNamespace)

func newPatterns(namespace string) *patterns {
	ns := regexp.QuoteMeta(namespace) + `\.(?:untracked\.)?`
	scalarTypes := `((?:untracked\.)?(?:int32|uint32|int64|uint64|string|bool|double))`
	return &patterns{
		namespace: namespace,
		singleTag: regexp.MustCompile(`(\w+)\s*=\s*` + ns + `(InputTag|ESInputTag)` + tagArgs),
		listTag:   regexp.MustCompile(`(\w+)\s*=\s*` + ns + `(VInputTag|VESInputTag)\s*\(`),
		innerTag:  regexp.MustCompile(ns + `(?:InputTag|ESInputTag)` + tagArgs),
		quoted:    regexp.MustCompile(`["']([^"']+)["']`),
		scalar:    regexp.MustCompile(`(\w+)\s*=\s*` + regexp.QuoteMeta(namespace) + `\.` + scalarTypes + `\s*\(([^)]+)\)`),
	}
}

// ExtractReferenceTags finds every reference expression in a parameter block.
// Single references come first in document order, followed by list elements.
func ExtractReferenceTags(block string) []ReferenceTag {
	return defaultPatterns.referenceTags(block)
}

func (p *patterns) referenceTags(block string) []ReferenceTag {
	var tags []ReferenceTag

	for _, m := range p.singleTag.FindAllStringSubmatch(block, -1) {
		tags = append(tags, newReferenceTag(m[1], TagKind(m[2]), nil, m[3], m[4], m[5]))
	}

	for _, loc := range p.listTag.FindAllStringSubmatchIndex(block, -1) {
		field := block[loc[2]:loc[3]]
		kind := TagKind(block[loc[4]:loc[5]])

		// The match ends just past the opening parenthesis.
		content, _ := ExtractBalancedBlock(block, loc[1]-1)
		tags = append(tags, p.listElements(field, kind, content)...)
	}

	return tags
}

// listElements turns the body of a list reference into indexed tags. Structured
// sub-expressions win; otherwise each quoted literal is a bare reference.
func (p *patterns) listElements(field string, kind TagKind, content string) []ReferenceTag {
	var tags []ReferenceTag

	if inner := p.innerTag.FindAllStringSubmatch(content, -1); len(inner) > 0 {
		for i, m := range inner {
			tags = append(tags, newReferenceTag(field, kind, indexPtr(i), m[1], m[2], m[3]))
		}
		return tags
	}

	for i, m := range p.quoted.FindAllStringSubmatch(content, -1) {
		tags = append(tags, newReferenceTag(field, kind, indexPtr(i), m[1], "", ""))
	}
	return tags
}

// newReferenceTag builds a tag, letting a "module:instance:process" first argument
// fill whichever sub-fields were not given positionally.
func newReferenceTag(field string, kind TagKind, index *int, module, instance, process string) ReferenceTag {
	if strings.Contains(module, ":") {
		m, i, p := SplitTag(module)
		module = m
		if instance == "" {
			instance = i
		}
		if process == "" {
			process = p
		}
	}

	if !kind.IsList() {
		index = nil
	}

	return ReferenceTag{
		Field:    field,
		Kind:     kind,
		Index:    index,
		Module:   module,
		Instance: instance,
		Process:  process,
	}
}

// SplitTag splits "module:instance:process" into its parts. Missing parts are
// empty and anything past the third colon-separated part is ignored.
func SplitTag(s string) (module, instance, process string) {
	parts := strings.Split(s, ":")
	module = parts[0]
	if len(parts) > 1 {
		instance = parts[1]
	}
	if len(parts) > 2 {
		process = parts[2]
	}
	return module, instance, process
}

func indexPtr(i int) *int {
	return &i
}
