package validation

import (
	"regexp"
	"strconv"
	"time"

	"github.com/openfield/openfield/model"
)

// answerShape says which variant of the answer union an input type expects.
type answerShape int

const (
	shapeScalar answerShape = iota
	shapeChoices
	shapeLocation
)

// Maximum lengths for free-text answers.
const (
	maxTextLen     = 255
	maxTextareaLen = 1000
)

// typeSpec is one row of the input type registry: the expected answer shape
// plus the format check applied to non-empty answers. The registry is built
// once and never mutated, so it is safe under concurrent uploads.
type typeSpec struct {
	shape  answerShape
	format func(in *model.Input, a decodedAnswer) *Error
}

var registry = map[string]typeSpec{
	model.TypeText:           {shapeScalar, formatText(maxTextLen)},
	model.TypeTextarea:       {shapeScalar, formatText(maxTextareaLen)},
	model.TypeBarcode:        {shapeScalar, formatText(maxTextLen)},
	model.TypePhone:          {shapeScalar, formatText(maxTextLen)},
	model.TypeInteger:        {shapeScalar, formatInteger},
	model.TypeDecimal:        {shapeScalar, formatDecimal},
	model.TypeDate:           {shapeScalar, formatTimestamp},
	model.TypeTime:           {shapeScalar, formatTimestamp},
	model.TypeRadio:          {shapeScalar, formatSingleChoice},
	model.TypeDropdown:       {shapeScalar, formatSingleChoice},
	model.TypeSearchSingle:   {shapeScalar, formatSingleChoice},
	model.TypeCheckbox:       {shapeChoices, formatMultiChoice},
	model.TypeSearchMultiple: {shapeChoices, formatMultiChoice},
	model.TypeLocation:       {shapeLocation, formatLocation},
}

// decodedAnswer is the tagged union the shape decoders produce. Exactly one
// variant is meaningful, selected by the registry shape.
type decodedAnswer struct {
	scalar   string
	choices  []string
	location model.Location
}

func (a decodedAnswer) empty(shape answerShape) bool {
	switch shape {
	case shapeChoices:
		return len(a.choices) == 0
	case shapeLocation:
		return a.location.Empty()
	default:
		return a.scalar == ""
	}
}

// decodeAnswer pulls the expected variant out of the raw answer. A raw value
// of the wrong variant is an invalid answer, not a required violation.
func decodeAnswer(shape answerShape, raw model.Answer) (decodedAnswer, error) {
	var out decodedAnswer
	var err error
	switch shape {
	case shapeChoices:
		out.choices, err = raw.Choices()
	case shapeLocation:
		out.location, err = raw.Location()
	default:
		out.scalar, err = raw.Scalar()
	}
	return out, err
}

func errp(code, source string) *Error {
	e := NewError(code, source)
	return &e
}

func formatText(maxLen int) func(in *model.Input, a decodedAnswer) *Error {
	return func(in *model.Input, a decodedAnswer) *Error {
		if len(a.scalar) > maxLen {
			return errp(CodeAnswerTooLong, in.Ref)
		}
		if in.Regex != "" {
			re, err := regexp.Compile(in.Regex)
			// An uncompilable pattern is a formbuilder defect, not the
			// uploader's fault: skip the check rather than reject.
			if err == nil && !re.MatchString(a.scalar) {
				return errp(CodeInvalidAnswer, in.Ref)
			}
		}
		return nil
	}
}

func formatInteger(in *model.Input, a decodedAnswer) *Error {
	n, err := strconv.ParseInt(a.scalar, 10, 64)
	if err != nil {
		return errp(CodeInvalidAnswer, in.Ref)
	}
	// bounds stay in the integer domain: float64 cannot hold every int64
	if in.Min != "" {
		if min, err := strconv.ParseInt(in.Min, 10, 64); err == nil && n < min {
			return errp(CodeInvalidAnswer, in.Ref)
		}
	}
	if in.Max != "" {
		if max, err := strconv.ParseInt(in.Max, 10, 64); err == nil && n > max {
			return errp(CodeInvalidAnswer, in.Ref)
		}
	}
	return nil
}

func formatDecimal(in *model.Input, a decodedAnswer) *Error {
	f, err := strconv.ParseFloat(a.scalar, 64)
	if err != nil {
		return errp(CodeInvalidAnswer, in.Ref)
	}
	if in.Min != "" {
		if min, err := strconv.ParseFloat(in.Min, 64); err == nil && f < min {
			return errp(CodeInvalidAnswer, in.Ref)
		}
	}
	if in.Max != "" {
		if max, err := strconv.ParseFloat(in.Max, 64); err == nil && f > max {
			return errp(CodeInvalidAnswer, in.Ref)
		}
	}
	return nil
}

// Clients transport date and time answers in the same millisecond timestamp
// layout, e.g. "2024-05-01T00:00:00.000".
const timestampLayout = "2006-01-02T15:04:05.000"

func formatTimestamp(in *model.Input, a decodedAnswer) *Error {
	if _, err := time.Parse(timestampLayout, a.scalar); err != nil {
		return errp(CodeInvalidAnswer, in.Ref)
	}
	return nil
}

func formatSingleChoice(in *model.Input, a decodedAnswer) *Error {
	if !in.HasAnswer(a.scalar) {
		return errp(CodeInvalidOption, in.Ref)
	}
	return nil
}

func formatMultiChoice(in *model.Input, a decodedAnswer) *Error {
	for _, ref := range a.choices {
		if !in.HasAnswer(ref) {
			return errp(CodeInvalidOption, in.Ref)
		}
	}
	return nil
}

func formatLocation(in *model.Input, a decodedAnswer) *Error {
	loc := a.location
	lat, err := strconv.ParseFloat(loc.Latitude, 64)
	if err != nil || lat < -90 || lat > 90 {
		return errp(CodeInvalidAnswer, in.Ref)
	}
	lng, err := strconv.ParseFloat(loc.Longitude, 64)
	if err != nil || lng < -180 || lng > 180 {
		return errp(CodeInvalidAnswer, in.Ref)
	}
	if loc.Accuracy != "" {
		if acc, err := strconv.ParseFloat(loc.Accuracy, 64); err != nil || acc < 0 {
			return errp(CodeInvalidAnswer, in.Ref)
		}
	}
	return nil
}
