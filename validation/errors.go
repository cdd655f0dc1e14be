package validation

// Error codes returned in upload responses. ec5_21 is the required-field
// violation; clients key field highlighting off the code/source pair, so both
// are part of the API contract.
const (
	CodeProjectNotFound = "ec5_11"
	CodeFormNotFound    = "ec5_14"
	CodeInputNotFound   = "ec5_15"
	CodeEntryNotFound   = "ec5_16"
	CodeRequiredMissing = "ec5_21"
	CodeInvalidAnswer   = "ec5_23"
	CodeInvalidOption   = "ec5_25"
	CodeAnswerTooLong   = "ec5_27"
)

var titles = map[string]string{
	CodeProjectNotFound: "Project does not exist.",
	CodeFormNotFound:    "Form does not exist.",
	CodeInputNotFound:   "Input does not exist.",
	CodeEntryNotFound:   "Entry does not exist.",
	CodeRequiredMissing: "Required field is missing.",
	CodeInvalidAnswer:   "Invalid answer.",
	CodeInvalidOption:   "Answer is not a valid option.",
	CodeAnswerTooLong:   "Answer is too long.",
}

// Error is one validation failure, addressable by the ref of the offending
// input even when that input sits deep inside a group or branch.
type Error struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// NewError builds an Error for a known code, filling in its canonical title.
func NewError(code, source string) Error {
	return Error{Code: code, Title: titles[code], Source: source}
}

// Bag accumulates validation errors in the order they were found.
type Bag struct {
	errs []Error
}

func (b *Bag) Push(e Error) {
	b.errs = append(b.errs, e)
}

func (b *Bag) Empty() bool {
	return len(b.errs) == 0
}

func (b *Bag) Errors() []Error {
	return b.errs
}

// Response is the wire shape of a failed upload: {"errors":[...]}.
type Response struct {
	Errors []Error `json:"errors"`
}

func (b *Bag) Response() Response {
	return Response{Errors: b.errs}
}
