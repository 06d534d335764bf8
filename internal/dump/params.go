package dump

import "strings"

// ExtractParameters finds typed scalar assignments in a parameter block.
// Values are kept as raw text; a repeated name keeps its last value.
func ExtractParameters(block string) map[string]Parameter {
	return defaultPatterns.parameters(block)
}

func (p *patterns) parameters(block string) map[string]Parameter {
	params := make(map[string]Parameter)
	for _, m := range p.scalar.FindAllStringSubmatch(block, -1) {
		params[m[1]] = Parameter{
			Type:  m[2],
			Value: strings.Trim(strings.TrimSpace(m[3]), `"'`),
		}
	}
	return params
}
