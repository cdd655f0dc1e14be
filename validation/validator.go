package validation

import (
	"github.com/openfield/openfield/model"
)

// Validate runs the required-field and format checks over a flattened
// traversal, in traversal order. It fails fast: the first violation is the
// only one reported, so the response always carries at most one error and
// declaration order decides which field is surfaced when several are bad.
func Validate(nodes []model.TraversalNode, answers model.AnswerSet) *Bag {
	bag := &Bag{}
	for _, node := range nodes {
		in := node.Input

		// Group and branch nodes are structural markers. They carry no
		// answer, and a required flag on them means nothing.
		if model.StructuralType(in.Type) {
			continue
		}

		spec, ok := registry[in.Type]
		if !ok {
			continue
		}

		raw, _ := answers.Get(in.Ref)
		decoded, err := decodeAnswer(spec.shape, raw)
		if err != nil {
			bag.Push(NewError(CodeInvalidAnswer, in.Ref))
			return bag
		}

		if decoded.empty(spec.shape) {
			if in.Required {
				bag.Push(NewError(CodeRequiredMissing, in.Ref))
				return bag
			}
			continue
		}

		if ferr := spec.format(in, decoded); ferr != nil {
			bag.Push(*ferr)
			return bag
		}
	}
	return bag
}

// ValidateEntry validates an entry payload against its form.
func ValidateEntry(form model.Form, answers model.AnswerSet) *Bag {
	return Validate(model.FlattenForm(form), answers)
}

// ValidateBranchEntry validates a branch-entry payload against the branch
// rooted at the owning input.
func ValidateBranchEntry(branch *model.Input, answers model.AnswerSet) *Bag {
	return Validate(model.FlattenBranch(branch), answers)
}
