package model

import (
	"encoding/json"
	"errors"
)

// Upload payload kinds.
const (
	KindEntry       = "entry"
	KindBranchEntry = "branch_entry"
)

// UploadPayload is the body of a web-upload request.
type UploadPayload struct {
	Data UploadData `json:"data"`
}

type UploadData struct {
	ID          string           `json:"id"`
	Type        string           `json:"type"`
	FormRef     string           `json:"form_ref,omitempty"`
	Entry       *EntryBody       `json:"entry,omitempty"`
	BranchEntry *BranchEntryBody `json:"branch_entry,omitempty"`
}

type EntryBody struct {
	Answers AnswerSet `json:"answers"`
}

type BranchEntryBody struct {
	Answers        AnswerSet `json:"answers"`
	OwnerEntryUUID string    `json:"owner_entry_uuid"`
	OwnerInputRef  string    `json:"owner_input_ref"`
}

// Answers returns the answer set for the payload's kind, or nil when the
// matching body is missing.
func (d UploadData) Answers() AnswerSet {
	switch d.Type {
	case KindBranchEntry:
		if d.BranchEntry == nil {
			return nil
		}
		return d.BranchEntry.Answers
	default:
		if d.Entry == nil {
			return nil
		}
		return d.Entry.Answers
	}
}

// AnswerSet is the flat ref -> answer container of one entry or branch entry.
// Groups share their parent's scope, so no nesting ever appears here.
type AnswerSet map[string]Answer

func (s AnswerSet) Get(ref string) (Answer, bool) {
	a, ok := s[ref]
	return a, ok
}

// Answer holds one raw answer value. The value stays undecoded until the
// validator knows which shape the input type expects.
type Answer struct {
	Value json.RawMessage `json:"answer"`
}

// ErrAnswerShape is returned by the decode helpers when the raw value is not
// of the variant the input type calls for.
var ErrAnswerShape = errors.New("answer does not match the expected shape")

func (a Answer) isAbsent() bool {
	if len(a.Value) == 0 {
		return true
	}
	return string(a.Value) == "null"
}

// Scalar decodes the answer as a string. Absent values decode to "".
func (a Answer) Scalar() (string, error) {
	if a.isAbsent() {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(a.Value, &s); err != nil {
		return "", ErrAnswerShape
	}
	return s, nil
}

// Choices decodes the answer as a list of selected option refs. Absent values
// decode to nil.
func (a Answer) Choices() ([]string, error) {
	if a.isAbsent() {
		return nil, nil
	}
	var refs []string
	if err := json.Unmarshal(a.Value, &refs); err != nil {
		return nil, ErrAnswerShape
	}
	return refs, nil
}

// Location is a geodata answer. All fields are transported as strings; an
// answer is empty only when all three are blank.
type Location struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Accuracy  string `json:"accuracy"`
}

func (l Location) Empty() bool {
	return l.Latitude == "" && l.Longitude == "" && l.Accuracy == ""
}

// Location decodes the answer as a geodata object. Absent values decode to
// the all-blank (empty) location.
func (a Answer) Location() (Location, error) {
	if a.isAbsent() {
		return Location{}, nil
	}
	var loc Location
	if err := json.Unmarshal(a.Value, &loc); err != nil {
		return Location{}, ErrAnswerShape
	}
	return loc, nil
}
