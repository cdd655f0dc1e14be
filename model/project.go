package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Input type tags as they appear in a project definition.
const (
	TypeText           = "text"
	TypeInteger        = "integer"
	TypeDecimal        = "decimal"
	TypePhone          = "phone"
	TypeDate           = "date"
	TypeTime           = "time"
	TypeRadio          = "radio"
	TypeDropdown       = "dropdown"
	TypeCheckbox       = "checkbox"
	TypeSearchSingle   = "searchsingle"
	TypeSearchMultiple = "searchmultiple"
	TypeTextarea       = "textarea"
	TypeBarcode        = "barcode"
	TypeLocation       = "location"
	TypeGroup          = "group"
	TypeBranch         = "branch"
)

var knownTypes = map[string]bool{
	TypeText: true, TypeInteger: true, TypeDecimal: true, TypePhone: true,
	TypeDate: true, TypeTime: true, TypeRadio: true, TypeDropdown: true,
	TypeCheckbox: true, TypeSearchSingle: true, TypeSearchMultiple: true,
	TypeTextarea: true, TypeBarcode: true, TypeLocation: true,
	TypeGroup: true, TypeBranch: true,
}

// KnownType reports whether t is a valid input type tag.
func KnownType(t string) bool {
	return knownTypes[t]
}

// StructuralType reports whether t marks a structural node (group or branch)
// that never carries an answer of its own.
func StructuralType(t string) bool {
	return t == TypeGroup || t == TypeBranch
}

// ProjectDefinition is the decoded form of the JSON blob authored by the
// formbuilder and stored per project. It is immutable for the lifetime of an
// upload request: one fetch, used throughout one validation pass.
type ProjectDefinition struct {
	Project Project `json:"project"`
}

type Project struct {
	Ref   string `json:"ref"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Forms []Form `json:"forms"`
}

type Form struct {
	Ref    string   `json:"ref"`
	Name   string   `json:"name"`
	Inputs []*Input `json:"inputs"`
}

// Input is the recursive unit of a form. Group holds nested children when
// Type is "group"; Branch holds the branch sub-form when Type is "branch".
// Nesting is asymmetric: a branch child may be a group, but a group child is
// always a leaf.
type Input struct {
	Ref             string           `json:"ref"`
	Type            string           `json:"type"`
	Question        string           `json:"question,omitempty"`
	Required        bool             `json:"is_required"`
	Regex           string           `json:"regex,omitempty"`
	Min             string           `json:"min,omitempty"`
	Max             string           `json:"max,omitempty"`
	PossibleAnswers []PossibleAnswer `json:"possible_answers,omitempty"`
	Group           []*Input         `json:"group,omitempty"`
	Branch          []*Input         `json:"branch,omitempty"`
}

type PossibleAnswer struct {
	Ref    string `json:"answer_ref"`
	Answer string `json:"answer"`
}

// HasAnswer reports whether a possible answer with the given ref exists.
func (in *Input) HasAnswer(ref string) bool {
	for _, pa := range in.PossibleAnswers {
		if pa.Ref == ref {
			return true
		}
	}
	return false
}

type definitionEnvelope struct {
	Data ProjectDefinition `json:"data"`
}

// ParseDefinition decodes a project definition blob of the form
// {"data":{"project":{...,"forms":[...]}}} and checks its structure.
func ParseDefinition(raw []byte) (*ProjectDefinition, error) {
	var env definitionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse project definition: %w", err)
	}
	def := env.Data
	if err := def.Check(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Check verifies the structural invariants the validator relies on: at least
// one form, globally unique refs, known types, and the nesting asymmetry
// (top-level -> branch -> group at most, never a branch below top level and
// never a structural node inside a group).
func (def *ProjectDefinition) Check() error {
	if len(def.Project.Forms) == 0 {
		return errors.New("project definition has no forms")
	}

	refs := map[string]bool{}
	seen := func(ref string) error {
		if ref == "" {
			return errors.New("input with empty ref")
		}
		if refs[ref] {
			return fmt.Errorf("duplicate ref %q", ref)
		}
		refs[ref] = true
		return nil
	}

	for _, form := range def.Project.Forms {
		if err := seen(form.Ref); err != nil {
			return err
		}
		for _, in := range form.Inputs {
			if err := checkInput(in, seen, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// depth 0 = top level of a form, 1 = inside a branch, 2 = inside a group.
func checkInput(in *Input, seen func(string) error, depth int) error {
	if err := seen(in.Ref); err != nil {
		return err
	}
	if !KnownType(in.Type) {
		return fmt.Errorf("input %s: unknown type %q", in.Ref, in.Type)
	}

	switch in.Type {
	case TypeBranch:
		if depth > 0 {
			return fmt.Errorf("input %s: branch nested below top level", in.Ref)
		}
		if len(in.Branch) == 0 {
			return fmt.Errorf("input %s: branch without inputs", in.Ref)
		}
		for _, child := range in.Branch {
			if err := checkInput(child, seen, 1); err != nil {
				return err
			}
		}
	case TypeGroup:
		if depth >= 2 {
			return fmt.Errorf("input %s: group nested inside a group", in.Ref)
		}
		if len(in.Group) == 0 {
			return fmt.Errorf("input %s: group without inputs", in.Ref)
		}
		for _, child := range in.Group {
			if StructuralType(child.Type) {
				return fmt.Errorf("input %s: %s not allowed inside a group", child.Ref, child.Type)
			}
			if err := checkInput(child, seen, 2); err != nil {
				return err
			}
		}
	default:
		if len(in.Branch) > 0 || len(in.Group) > 0 {
			return fmt.Errorf("input %s: children on non-structural type %q", in.Ref, in.Type)
		}
	}
	return nil
}

// FormByRef returns the form with the given ref. An empty ref resolves to the
// first form, which is what single-form clients send.
func (def *ProjectDefinition) FormByRef(ref string) (Form, bool) {
	if ref == "" && len(def.Project.Forms) > 0 {
		return def.Project.Forms[0], true
	}
	for _, f := range def.Project.Forms {
		if f.Ref == ref {
			return f, true
		}
	}
	return Form{}, false
}

// BranchByRef returns the branch input owning the given ref, searching the
// top level of every form. Branches never nest deeper than that.
func (def *ProjectDefinition) BranchByRef(ownerInputRef string) (*Input, bool) {
	for _, f := range def.Project.Forms {
		for _, in := range f.Inputs {
			if in.Type == TypeBranch && in.Ref == ownerInputRef {
				return in, true
			}
		}
	}
	return nil, false
}

// TraversalNode is one step of a flattened traversal: the input itself plus
// the structural node it sits under (nil at top level).
type TraversalNode struct {
	Input  *Input
	Parent *Input
}

// FlattenForm yields the form's inputs in declaration order. Group children
// follow their group node immediately; branch children are excluded, they
// belong to the branch's own traversal (see FlattenBranch).
func FlattenForm(f Form) []TraversalNode {
	nodes := make([]TraversalNode, 0, len(f.Inputs))
	for _, in := range f.Inputs {
		nodes = append(nodes, TraversalNode{Input: in})
		if in.Type == TypeGroup {
			for _, child := range in.Group {
				nodes = append(nodes, TraversalNode{Input: child, Parent: in})
			}
		}
	}
	return nodes
}

// FlattenBranch yields a branch's inputs in declaration order, inlining group
// children the same way FlattenForm does.
func FlattenBranch(branch *Input) []TraversalNode {
	nodes := make([]TraversalNode, 0, len(branch.Branch))
	for _, in := range branch.Branch {
		nodes = append(nodes, TraversalNode{Input: in, Parent: branch})
		if in.Type == TypeGroup {
			for _, child := range in.Group {
				nodes = append(nodes, TraversalNode{Input: child, Parent: in})
			}
		}
	}
	return nodes
}
