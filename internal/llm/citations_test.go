package llm

import "testing"

func TestExtractCitations(t *testing.T) {
	payload := `{"output":[
		{"type":"message","content":[
			{"type":"output_text","annotations":[
				{"type":"url_citation","url":"https://example.com/a","title":"A","start_index":0,"end_index":5},
				{"type":"file_citation","file_id":"file_1","filename":"doc.pdf","index":2}
			]}
		]},
		{"type":"function_call"}
	]}`
	citations, files := ExtractCitations([]byte(payload))
	if len(citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(citations))
	}
	c := citations[0]
	if c.URL != "https://example.com/a" || c.Title != "A" || c.StartIndex != 0 || c.EndIndex != 5 {
		t.Errorf("citation = %+v", c)
	}
	if len(files) != 1 || files[0].FileID != "file_1" || files[0].Filename != "doc.pdf" {
		t.Errorf("file citations = %+v", files)
	}
}

func TestExtractCitationsDedupKeepsFirst(t *testing.T) {
	payload := `{"output":[{"type":"message","content":[{"type":"output_text","annotations":[
		{"type":"url_citation","url":"https://x.test","title":"first"},
		{"type":"url_citation","url":"https://x.test","title":"second"},
		{"type":"file_citation","file_id":"f1","filename":"a"},
		{"type":"file_citation","file_id":"f1","filename":"b"}
	]}]}]}`
	citations, files := ExtractCitations([]byte(payload))
	if len(citations) != 1 || citations[0].Title != "first" {
		t.Errorf("citations = %+v, want one entry with first-seen title", citations)
	}
	if len(files) != 1 || files[0].Filename != "a" {
		t.Errorf("file citations = %+v", files)
	}
}

func TestExtractCitationsSkipsMalformed(t *testing.T) {
	payload := `{"output":[{"type":"message","content":[{"type":"output_text","annotations":[
		{"type":"url_citation","title":"no url"},
		{"type":"file_citation","filename":"no id"},
		{"type":"container_file_citation","file_id":"other kind"},
		{"type":"url_citation","url":"https://keep.test"}
	]}]}]}`
	citations, files := ExtractCitations([]byte(payload))
	if len(citations) != 1 || citations[0].URL != "https://keep.test" {
		t.Errorf("citations = %+v", citations)
	}
	if len(files) != 0 {
		t.Errorf("file citations = %+v, want none", files)
	}
}

func TestExtractCitationsEmptyInputs(t *testing.T) {
	for _, payload := range []string{``, `{}`, `{"output":[]}`, `not json`, `{"output":[{"type":"message"}]}`} {
		citations, files := ExtractCitations([]byte(payload))
		if len(citations) != 0 || len(files) != 0 {
			t.Errorf("payload %q: expected empty results, got %d/%d", payload, len(citations), len(files))
		}
	}
}

func TestExtractCitationsNonTextContentIgnored(t *testing.T) {
	payload := `{"output":[{"type":"message","content":[
		{"type":"refusal","annotations":[{"type":"url_citation","url":"https://nope.test"}]}
	]}]}`
	citations, _ := ExtractCitations([]byte(payload))
	if len(citations) != 0 {
		t.Errorf("annotations outside output_text must be ignored, got %+v", citations)
	}
}
