package llms

import "strings"

// TruncateAtStopWord implements spec.md §4.3's stop-word truncation: if the
// provider does not natively support stop sequences, the abstraction trims
// the response at the earliest occurrence of any configured stop word.
func TruncateAtStopWord(text string, stop []string) string {
	if len(stop) == 0 {
		return text
	}
	earliest := -1
	for _, word := range stop {
		if word == "" {
			continue
		}
		if idx := strings.Index(text, word); idx != -1 && (earliest == -1 || idx < earliest) {
			earliest = idx
		}
	}
	if earliest == -1 {
		return text
	}
	return text[:earliest]
}

// ApplyStopWords truncates resp.Text when the provider doesn't natively
// support stop words; otherwise it trusts the provider already honoured
// them and returns resp unchanged.
func ApplyStopWords(p Provider, resp Response, stop []string) Response {
	if p.SupportsStopWords() {
		return resp
	}
	resp.Text = TruncateAtStopWord(resp.Text, stop)
	return resp
}
