package llm

import "encoding/json"

// ExtractCitations pulls link and file references out of a terminal
// response payload. Only message items carry citations, and only their
// output_text content entries carry annotations. Annotation kinds other
// than url_citation and file_citation, and entries missing required
// fields, are skipped individually; extraction never fails, an empty or
// unrecognizable payload just yields empty lists.
func ExtractCitations(payload []byte) ([]Citation, []FileCitation) {
	var resp struct {
		Output []struct {
			Type    string `json:"type"`
			Content []struct {
				Type        string `json:"type"`
				Annotations []struct {
					Type       string `json:"type"`
					URL        string `json:"url,omitempty"`
					Title      string `json:"title,omitempty"`
					StartIndex int    `json:"start_index,omitempty"`
					EndIndex   int    `json:"end_index,omitempty"`
					FileID     string `json:"file_id,omitempty"`
					Filename   string `json:"filename,omitempty"`
					Index      int    `json:"index,omitempty"`
				} `json:"annotations,omitempty"`
			} `json:"content,omitempty"`
		} `json:"output,omitempty"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, nil
	}

	var citations []Citation
	var fileCitations []FileCitation
	seenURLs := make(map[string]bool)
	seenFiles := make(map[string]bool)

	for _, item := range resp.Output {
		if item.Type != ItemMessage {
			continue
		}
		for _, content := range item.Content {
			if content.Type != "output_text" {
				continue
			}
			for _, ann := range content.Annotations {
				switch ann.Type {
				case "url_citation":
					if ann.URL == "" || seenURLs[ann.URL] {
						continue
					}
					seenURLs[ann.URL] = true
					citations = append(citations, Citation{
						URL:        ann.URL,
						Title:      ann.Title,
						StartIndex: ann.StartIndex,
						EndIndex:   ann.EndIndex,
					})
				case "file_citation":
					if ann.FileID == "" || seenFiles[ann.FileID] {
						continue
					}
					seenFiles[ann.FileID] = true
					fileCitations = append(fileCitations, FileCitation{
						FileID:   ann.FileID,
						Filename: ann.Filename,
						Index:    ann.Index,
					})
				}
			}
		}
	}
	return citations, fileCitations
}

// mergeCitations appends incoming citations not already present,
// deduplicating by URL and keeping the first occurrence.
func mergeCitations(existing, incoming []Citation) []Citation {
	merged := make([]Citation, len(existing), len(existing)+len(incoming))
	copy(merged, existing)
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.URL] = true
	}
	for _, c := range incoming {
		if seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		merged = append(merged, c)
	}
	return merged
}

// mergeFileCitations is the file-id analogue of mergeCitations.
func mergeFileCitations(existing, incoming []FileCitation) []FileCitation {
	merged := make([]FileCitation, len(existing), len(existing)+len(incoming))
	copy(merged, existing)
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.FileID] = true
	}
	for _, c := range incoming {
		if seen[c.FileID] {
			continue
		}
		seen[c.FileID] = true
		merged = append(merged, c)
	}
	return merged
}
