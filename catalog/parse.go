package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const IssueDateLayout = "2006-01-02"

type ParseError struct {
	// Index of the offending record, or -1 when the document itself is bad.
	Index int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("parse catalog: %v", e.Err)
	case e.Field != "":
		return fmt.Sprintf("parse catalog: record %d: %s: %v", e.Index, e.Field, e.Err)
	default:
		return fmt.Sprintf("parse catalog: record %d: %v", e.Index, e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errMissing = errors.New("missing required field")

type record struct {
	Title       *string `json:"title"`
	Poster      *string `json:"poster"`
	ReleaseDate *int64  `json:"release_date"`
}

// Parse decodes a catalog document: a JSON array of
// {"title", "poster", "release_date"} records. Any bad record fails the
// whole document.
func Parse(data []byte) ([]Entry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}
	if raw == nil {
		return nil, &ParseError{Index: -1, Err: errors.New("document is not an array")}
	}

	entries := make([]Entry, 0, len(raw))
	for i, msg := range raw {
		var r record
		if err := json.Unmarshal(msg, &r); err != nil {
			return nil, &ParseError{Index: i, Err: err}
		}
		switch {
		case r.Title == nil:
			return nil, &ParseError{Index: i, Field: "title", Err: errMissing}
		case r.Poster == nil:
			return nil, &ParseError{Index: i, Field: "poster", Err: errMissing}
		case *r.Poster == "":
			return nil, &ParseError{Index: i, Field: "poster", Err: errors.New("empty poster url")}
		case r.ReleaseDate == nil:
			return nil, &ParseError{Index: i, Field: "release_date", Err: errMissing}
		}

		released := time.Unix(*r.ReleaseDate, 0).UTC()
		entries = append(entries, Entry{
			Title:     *r.Title,
			Poster:    *r.Poster,
			IssueDate: released.Format(IssueDateLayout),
			Released:  released,
		})
	}

	return entries, nil
}
