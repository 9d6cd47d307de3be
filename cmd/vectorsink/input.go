package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/google/uuid"
	"github.com/poiesic/vectorsink/core"
)

// maxLineSize bounds one JSONL record.
const maxLineSize = 16 * 1024 * 1024

// idNamespace scopes content-derived identities.
var idNamespace = uuid.MustParse("6f1c9a52-3d0e-4c8b-9a57-2b1f8e4d7c10")

type inputRecord struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// jsonlReader decodes documents from JSON lines. Blank lines are skipped.
// The first malformed line ends the sequence; Err reports it.
type jsonlReader struct {
	r           io.Reader
	generateIDs bool
	err         error
}

func newJSONLReader(r io.Reader, generateIDs bool) *jsonlReader {
	return &jsonlReader{r: r, generateIDs: generateIDs}
}

func (j *jsonlReader) Documents() iter.Seq[core.Document] {
	return func(yield func(core.Document) bool) {
		scanner := bufio.NewScanner(j.r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		line := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(bytes.TrimSpace(raw)) == 0 {
				continue
			}

			var rec inputRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				j.err = fmt.Errorf("line %d: %w", line, err)
				return
			}
			if rec.ID == "" && j.generateIDs {
				rec.ID = contentID(rec.Content)
			}
			if !yield(core.Document{Identity: rec.ID, Content: rec.Content, Metadata: rec.Metadata}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			j.err = fmt.Errorf("line %d: %w", line+1, err)
		}
	}
}

func (j *jsonlReader) Err() error {
	return j.err
}

// contentID derives a stable identity so re-running an input converges on
// the same rows.
func contentID(content string) string {
	return uuid.NewSHA1(idNamespace, []byte(content)).String()
}

// documentSource yields documents and reports any read error afterwards.
type documentSource interface {
	Documents() iter.Seq[core.Document]
	Err() error
}

// fileSource replays a JSONL file from the start on every call, which
// lets a failed ingestion be retried.
type fileSource struct {
	path        string
	generateIDs bool
	err         error
}

func (f *fileSource) Documents() iter.Seq[core.Document] {
	return func(yield func(core.Document) bool) {
		f.err = nil
		file, err := os.Open(f.path)
		if err != nil {
			f.err = err
			return
		}
		defer file.Close()

		reader := newJSONLReader(file, f.generateIDs)
		for doc := range reader.Documents() {
			if !yield(doc) {
				return
			}
		}
		f.err = reader.Err()
	}
}

func (f *fileSource) Err() error {
	return f.err
}
