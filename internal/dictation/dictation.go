// Package dictation merges committed and in-flight transcript text
// from an incremental speech recognizer into a single input string.
package dictation

import "strings"

// Merge joins committed text with an interim hypothesis. A single space
// separates the parts when both are non-empty; surrounding whitespace
// on the interim part is dropped since recognizers pad unpredictably.
func Merge(committed, interim string) string {
	interim = strings.TrimSpace(interim)
	if interim == "" {
		return committed
	}
	if committed == "" {
		return interim
	}
	if strings.HasSuffix(committed, " ") {
		return committed + interim
	}
	return committed + " " + interim
}

// Capture accumulates final transcript segments across recognizer
// restarts. Interim text is held separately and replaced wholesale on
// every update, so a restart that clears the hypothesis never loses
// committed words.
type Capture struct {
	committed string
	interim   string
}

// Commit appends a finalized segment.
func (c *Capture) Commit(segment string) {
	c.committed = Merge(c.committed, segment)
	c.interim = ""
}

// Interim replaces the current in-flight hypothesis.
func (c *Capture) Interim(text string) {
	c.interim = text
}

// Text returns the full current transcript.
func (c *Capture) Text() string {
	return Merge(c.committed, c.interim)
}

// Reset clears everything for a new utterance.
func (c *Capture) Reset() {
	c.committed = ""
	c.interim = ""
}
