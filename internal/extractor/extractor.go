// Package extractor finds street addresses and intersections in transcript text.
package extractor

import (
	"regexp"

	"github.com/rajasatyajit/FeedMonitor/pkg/utils"
)

// Full names come before their abbreviations so the longer form wins.
const roadTypes = `Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl|Parkway|Pkwy|Circle|Cir|Way|Terrace|Ter`

// A road operand is an optional house number with up to three name words, or
// a single name word, followed by a road type.
const roadOperand = `(?:\d{1,5}\s+(?:[a-z0-9]+\s+){0,3}|(?:[a-z0-9]+\s+)?)(?:` + roadTypes + `)\b`

const connector = `(?:\s+(?:and|at)\s+|\s*[&/]\s*)`

var (
	// "500 Main Street and 3rd Avenue", "Oak St & Elm Ave"
	intersectionPattern = regexp.MustCompile(`(?i)\b` + roadOperand + connector + roadOperand)

	// "41st and Pine", "Ashland / Division", "Pine at 41st"
	// Group 1 is the first operand, which may start with filler. A bare
	// house number after the connector belongs to an address, not a cross street.
	simpleIntersectionPattern = regexp.MustCompile(
		`(?i)\b(\d{1,5}(?:st|nd|rd|th)?|[a-z0-9]{1,5}(?:st|nd|rd|th)?\s+[a-z0-9]+)` + connector +
			`(?:\d{1,5}(?:st|nd|rd|th)\b|[a-z][a-z0-9]*)(?:\s+[a-z0-9]+){0,2}\b`)

	// "1200 West Madison Street"
	addressPattern = regexp.MustCompile(
		`(?i)\b\d{1,5}\s+(?:[a-z0-9]+\s){0,4}(?:` + roadTypes + `)\b`)

	patterns = []*regexp.Regexp{intersectionPattern, simpleIntersectionPattern, addressPattern}
)

// Words that never begin a location phrase.
var fillerWords = map[string]struct{}{
	"at": {}, "near": {}, "on": {}, "in": {}, "of": {}, "to": {}, "from": {},
	"by": {}, "the": {}, "that": {}, "this": {}, "it": {}, "and": {}, "or": {},
	"is": {}, "was": {}, "so": {}, "copy": {},
}

// Extractor finds candidate location phrases in free text
type Extractor struct{}

// New creates a new extractor instance
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the first candidate location phrase in text
func (e *Extractor) Extract(text string) (string, bool) {
	return Extract(text)
}

// Extract tries the road-type intersection, the loose intersection and the
// street address patterns in that order and returns the first match.
func Extract(text string) (string, bool) {
	text = utils.CollapseWhitespace(text)
	if text == "" {
		return "", false
	}

	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatchIndex(text, -1) {
			if phrase, ok := candidate(text, m); ok {
				return phrase, true
			}
		}
	}
	return "", false
}

// candidate turns match indices into a location phrase. Leading filler is
// trimmed from a captured first operand; a match that is nothing but filler
// before its connector is rejected.
func candidate(text string, m []int) (string, bool) {
	if len(m) < 4 || m[2] < 0 {
		phrase := text[m[0]:m[1]]
		return phrase, !utils.FirstWordIn(phrase, fillerWords)
	}
	lead := utils.TrimLeadingWords(text[m[2]:m[3]], fillerWords)
	if lead == "" {
		return "", false
	}
	return text[m[3]-len(lead) : m[1]], true
}
