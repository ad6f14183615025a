// Package script turns source material into two-speaker podcast scripts
// and parses those scripts back into per-speaker utterances for rendering.
package script

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Speaker identifies one of the two fixed podcast hosts.
type Speaker string

const (
	SpeakerDoug   Speaker = "doug"
	SpeakerClaire Speaker = "claire"
)

// KnownSpeakers lists every speaker the parser recognizes, in the order
// voices are resolved.
func KnownSpeakers() []Speaker {
	return []Speaker{SpeakerDoug, SpeakerClaire}
}

// Utterance is one speaker's continuous turn of cleaned dialogue text.
type Utterance struct {
	Speaker Speaker
	Text    string
}

// minUtteranceLen is the cleaned-text length below which a span is
// treated as noise and dropped.
const minUtteranceLen = 5

var (
	// Speaker labels may carry markdown emphasis around the name, e.g.
	// "**DOUG:**" or "_CLAIRE_:". Matching is case-insensitive; labels
	// for unknown speakers are not markers and their text stays inside
	// the surrounding span.
	markerRe    = regexp.MustCompile(`(?i)[*_]{0,2}(DOUG|CLAIRE)[*_]{0,2}\s*:`)
	directionRe = regexp.MustCompile(`\[[^\]]*\]`)
)

// ParseScript extracts ordered utterances from free-form script text.
// It is pure and deterministic; an empty script or one without any
// recognizable speaker marker yields an empty slice, not an error.
func ParseScript(text string) []Utterance {
	matches := markerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	utterances := make([]Utterance, 0, len(matches))
	for i, m := range matches {
		speaker := Speaker(strings.ToLower(text[m[2]:m[3]]))
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		cleaned := CleanUtterance(text[m[1]:end])
		if utf8.RuneCountInString(cleaned) <= minUtteranceLen {
			continue
		}
		utterances = append(utterances, Utterance{Speaker: speaker, Text: cleaned})
	}
	return utterances
}

// CleanUtterance strips bracketed stage directions and markdown emphasis,
// then collapses runs of whitespace to single spaces.
func CleanUtterance(raw string) string {
	s := directionRe.ReplaceAllString(raw, " ")
	s = strings.NewReplacer("*", "", "_", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Reconstruct renders utterances back into canonical script form. Parsing
// the result yields the same speaker sequence.
func Reconstruct(utterances []Utterance) string {
	var b strings.Builder
	for i, u := range utterances {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToUpper(string(u.Speaker)))
		b.WriteString(": ")
		b.WriteString(u.Text)
	}
	return b.String()
}
