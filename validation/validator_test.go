package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfield/openfield/model"
)

func leaf(ref, typ string) *model.Input {
	return &model.Input{Ref: ref, Type: typ}
}

func requiredLeaf(ref, typ string) *model.Input {
	return &model.Input{Ref: ref, Type: typ, Required: true}
}

func answers(pairs map[string]string) model.AnswerSet {
	set := model.AnswerSet{}
	for ref, raw := range pairs {
		set[ref] = model.Answer{Value: json.RawMessage(raw)}
	}
	return set
}

// emptyAnswerFor returns the raw empty shape for a type, mirroring what
// clients send for untouched fields.
func emptyAnswerFor(typ string) string {
	switch typ {
	case model.TypeCheckbox, model.TypeSearchMultiple:
		return `[]`
	case model.TypeLocation:
		return `{"latitude":"","longitude":"","accuracy":""}`
	default:
		return `""`
	}
}

// validAnswerFor returns a raw answer that passes format validation for the
// given input.
func validAnswerFor(in *model.Input) string {
	switch in.Type {
	case model.TypeInteger:
		return `"42"`
	case model.TypeDecimal:
		return `"4.2"`
	case model.TypeDate, model.TypeTime:
		return `"2024-05-01T09:30:00.000"`
	case model.TypeRadio, model.TypeDropdown, model.TypeSearchSingle:
		return `"` + in.PossibleAnswers[0].Ref + `"`
	case model.TypeCheckbox, model.TypeSearchMultiple:
		return `["` + in.PossibleAnswers[0].Ref + `"]`
	case model.TypeLocation:
		return `{"latitude":"51.5","longitude":"-0.1","accuracy":"4"}`
	default:
		return `"sample"`
	}
}

func withOptions(in *model.Input) *model.Input {
	switch in.Type {
	case model.TypeRadio, model.TypeDropdown, model.TypeSearchSingle,
		model.TypeCheckbox, model.TypeSearchMultiple:
		in.PossibleAnswers = []model.PossibleAnswer{
			{Ref: "opt-1", Answer: "One"},
			{Ref: "opt-2", Answer: "Two"},
		}
	}
	return in
}

var answerableTypes = []string{
	model.TypeText, model.TypeInteger, model.TypeDecimal, model.TypePhone,
	model.TypeDate, model.TypeTime, model.TypeDropdown, model.TypeRadio,
	model.TypeCheckbox, model.TypeSearchSingle, model.TypeSearchMultiple,
	model.TypeTextarea, model.TypeBarcode, model.TypeLocation,
}

func requireSingleError(t *testing.T, bag *Bag, code, source string) {
	t.Helper()
	require.Len(t, bag.Errors(), 1)
	got := bag.Errors()[0]
	assert.Equal(t, code, got.Code)
	assert.Equal(t, titles[code], got.Title)
	assert.Equal(t, source, got.Source)
}

// Every answerable type, required at the top level, rejected with ec5_21 when
// the answer is its empty shape.
func TestRequiredTopLevel(t *testing.T) {
	for _, typ := range answerableTypes {
		t.Run(typ, func(t *testing.T) {
			in := withOptions(requiredLeaf("q-target", typ))
			form := model.Form{Ref: "f1", Inputs: []*model.Input{in}}

			bag := ValidateEntry(form, answers(map[string]string{
				"q-target": emptyAnswerFor(typ),
			}))

			requireSingleError(t, bag, CodeRequiredMissing, "q-target")
		})
	}
}

// Same property with the answer key missing from the payload entirely.
func TestRequiredTopLevelAbsentAnswer(t *testing.T) {
	for _, typ := range answerableTypes {
		t.Run(typ, func(t *testing.T) {
			in := withOptions(requiredLeaf("q-target", typ))
			form := model.Form{Ref: "f1", Inputs: []*model.Input{in}}

			bag := ValidateEntry(form, model.AnswerSet{})

			requireSingleError(t, bag, CodeRequiredMissing, "q-target")
		})
	}
}

// Every answerable type, required one level inside a group; the error source
// is the group-child ref.
func TestRequiredInsideGroup(t *testing.T) {
	for _, typ := range answerableTypes {
		t.Run(typ, func(t *testing.T) {
			child := withOptions(requiredLeaf("q-target", typ))
			form := model.Form{Ref: "f1", Inputs: []*model.Input{
				leaf("q-first", model.TypeText),
				{Ref: "g1", Type: model.TypeGroup, Group: []*model.Input{child}},
			}}

			bag := ValidateEntry(form, answers(map[string]string{
				"q-first":  `"present"`,
				"q-target": emptyAnswerFor(typ),
			}))

			requireSingleError(t, bag, CodeRequiredMissing, "q-target")
		})
	}
}

// Every answerable type, required inside a branch, validated through the
// branch's own traversal.
func TestRequiredInsideBranch(t *testing.T) {
	for _, typ := range answerableTypes {
		t.Run(typ, func(t *testing.T) {
			child := withOptions(requiredLeaf("q-target", typ))
			branch := &model.Input{Ref: "b1", Type: model.TypeBranch, Branch: []*model.Input{child}}

			bag := ValidateBranchEntry(branch, answers(map[string]string{
				"q-target": emptyAnswerFor(typ),
			}))

			requireSingleError(t, bag, CodeRequiredMissing, "q-target")
		})
	}
}

// Required inside a group nested in a branch, the deepest legal nesting.
func TestRequiredInsideGroupInsideBranch(t *testing.T) {
	child := requiredLeaf("q-target", model.TypeText)
	branch := &model.Input{Ref: "b1", Type: model.TypeBranch, Branch: []*model.Input{
		leaf("q-first", model.TypeText),
		{Ref: "g1", Type: model.TypeGroup, Group: []*model.Input{child}},
	}}

	bag := ValidateBranchEntry(branch, answers(map[string]string{
		"q-first":  `"present"`,
		"q-target": `""`,
	}))

	requireSingleError(t, bag, CodeRequiredMissing, "q-target")
}

// Fail-fast: with several required fields empty, only the first in traversal
// order is reported.
func TestFailFastReportsFirstInTraversalOrder(t *testing.T) {
	form := model.Form{Ref: "f1", Inputs: []*model.Input{
		leaf("q1", model.TypeText),
		requiredLeaf("q2", model.TypeText),
		requiredLeaf("q3", model.TypeInteger),
		requiredLeaf("q4", model.TypeLocation),
	}}

	bag := ValidateEntry(form, answers(map[string]string{
		"q1": `""`,
		"q2": `""`,
		"q3": `""`,
		"q4": emptyAnswerFor(model.TypeLocation),
	}))

	requireSingleError(t, bag, CodeRequiredMissing, "q2")
}

// A required group child empty while a later top-level input is also empty:
// the group child comes first in traversal order.
func TestFailFastGroupChildBeforeLaterInput(t *testing.T) {
	form := model.Form{Ref: "f1", Inputs: []*model.Input{
		{Ref: "g1", Type: model.TypeGroup, Group: []*model.Input{
			requiredLeaf("q-inner", model.TypeText),
		}},
		requiredLeaf("q-after", model.TypeText),
	}}

	bag := ValidateEntry(form, model.AnswerSet{})

	requireSingleError(t, bag, CodeRequiredMissing, "q-inner")
}

// Non-interference: all other answers valid, exactly one required field
// empty, exactly that one error.
func TestSingleEmptyFieldIsIsolated(t *testing.T) {
	inputs := []*model.Input{
		withOptions(requiredLeaf("q1", model.TypeRadio)),
		requiredLeaf("q2", model.TypeInteger),
		requiredLeaf("q3", model.TypeLocation),
		withOptions(requiredLeaf("q4", model.TypeCheckbox)),
		requiredLeaf("q5", model.TypeText),
	}
	form := model.Form{Ref: "f1", Inputs: inputs}

	set := model.AnswerSet{}
	for _, in := range inputs {
		set[in.Ref] = model.Answer{Value: json.RawMessage(validAnswerFor(in))}
	}
	set["q3"] = model.Answer{Value: json.RawMessage(emptyAnswerFor(model.TypeLocation))}

	bag := ValidateEntry(form, set)

	requireSingleError(t, bag, CodeRequiredMissing, "q3")
}

// All answers valid: the pass accepts.
func TestAllValidAccepts(t *testing.T) {
	inputs := make([]*model.Input, 0, len(answerableTypes))
	set := model.AnswerSet{}
	for _, typ := range answerableTypes {
		in := withOptions(requiredLeaf("q-"+typ, typ))
		inputs = append(inputs, in)
		set[in.Ref] = model.Answer{Value: json.RawMessage(validAnswerFor(in))}
	}
	form := model.Form{Ref: "f1", Inputs: inputs}

	bag := ValidateEntry(form, set)

	assert.True(t, bag.Empty())
	assert.Empty(t, bag.Errors())
}

// Branch children are invisible to the owning form's traversal: an empty
// required branch child never blocks an entry upload.
func TestBranchChildrenSkippedForEntries(t *testing.T) {
	form := model.Form{Ref: "f1", Inputs: []*model.Input{
		leaf("q1", model.TypeText),
		{Ref: "b1", Type: model.TypeBranch, Branch: []*model.Input{
			requiredLeaf("q-branch-child", model.TypeText),
		}},
	}}

	bag := ValidateEntry(form, model.AnswerSet{})

	assert.True(t, bag.Empty())
}

// A required flag on a structural group or branch node is a no-op.
func TestRequiredOnStructuralNodesIsNoOp(t *testing.T) {
	form := model.Form{Ref: "f1", Inputs: []*model.Input{
		{Ref: "g1", Type: model.TypeGroup, Required: true, Group: []*model.Input{
			leaf("q1", model.TypeText),
		}},
		{Ref: "b1", Type: model.TypeBranch, Required: true, Branch: []*model.Input{
			leaf("q2", model.TypeText),
		}},
	}}

	bag := ValidateEntry(form, model.AnswerSet{})

	assert.True(t, bag.Empty())
}

// Not-required fields with empty answers are fine and skip format checks.
func TestEmptyOptionalFieldsPass(t *testing.T) {
	for _, typ := range answerableTypes {
		t.Run(typ, func(t *testing.T) {
			in := withOptions(leaf("q1", typ))
			form := model.Form{Ref: "f1", Inputs: []*model.Input{in}}

			bag := ValidateEntry(form, answers(map[string]string{
				"q1": emptyAnswerFor(typ),
			}))

			assert.True(t, bag.Empty())
		})
	}
}

// A partially filled location is not a required violation; it fails the
// format check instead.
func TestPartialLocationFailsFormatNotRequired(t *testing.T) {
	form := model.Form{Ref: "f1", Inputs: []*model.Input{
		requiredLeaf("q1", model.TypeLocation),
	}}

	bag := ValidateEntry(form, answers(map[string]string{
		"q1": `{"latitude":"51.5","longitude":"","accuracy":""}`,
	}))

	requireSingleError(t, bag, CodeInvalidAnswer, "q1")
}

// An answer of the wrong variant for its type is an invalid answer.
func TestWrongAnswerShape(t *testing.T) {
	testCases := []struct {
		typ string
		raw string
	}{
		{model.TypeText, `["a"]`},
		{model.TypeCheckbox, `"opt-1"`},
		{model.TypeLocation, `"51.5,-0.1"`},
		{model.TypeInteger, `42`},
	}

	for _, tc := range testCases {
		t.Run(tc.typ, func(t *testing.T) {
			in := withOptions(leaf("q1", tc.typ))
			form := model.Form{Ref: "f1", Inputs: []*model.Input{in}}

			bag := ValidateEntry(form, answers(map[string]string{"q1": tc.raw}))

			requireSingleError(t, bag, CodeInvalidAnswer, "q1")
		})
	}
}

// Format failures fail fast too: a later required-but-empty field stays
// unreported.
func TestFormatErrorFailsFast(t *testing.T) {
	form := model.Form{Ref: "f1", Inputs: []*model.Input{
		requiredLeaf("q1", model.TypeInteger),
		requiredLeaf("q2", model.TypeText),
	}}

	bag := ValidateEntry(form, answers(map[string]string{
		"q1": `"not a number"`,
	}))

	requireSingleError(t, bag, CodeInvalidAnswer, "q1")
}

// Validation over the same snapshot is pure: concurrent passes see identical
// results with no coordination.
func TestValidationIsPureUnderConcurrency(t *testing.T) {
	form := model.Form{Ref: "f1", Inputs: []*model.Input{
		requiredLeaf("q1", model.TypeText),
		requiredLeaf("q2", model.TypeText),
	}}
	set := answers(map[string]string{"q1": `"here"`, "q2": `""`})

	done := make(chan *Bag, 16)
	for i := 0; i < 16; i++ {
		go func() {
			done <- ValidateEntry(form, set)
		}()
	}
	for i := 0; i < 16; i++ {
		bag := <-done
		requireSingleError(t, bag, CodeRequiredMissing, "q2")
	}
}
