package upload

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofrs/uuid"

	"github.com/openfield/openfield/model"
	"github.com/openfield/openfield/validation"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// StoredProject is the structure snapshot an upload request runs against:
// fetched once, immutable for the whole validation pass even if the
// formbuilder saves a newer version concurrently.
type StoredProject struct {
	ID         int64
	Slug       string
	Name       string
	Version    int
	Definition *model.ProjectDefinition
}

type ProjectStore interface {
	GetProject(ctx context.Context, slug string) (*StoredProject, error)
}

// EntryRecord is what gets persisted for an accepted upload. Answers stay as
// the raw JSON mapping the client sent; Version pins the project structure
// the entry was validated against.
type EntryRecord struct {
	UUID           string
	ProjectID      int64
	FormRef        string
	OwnerEntryUUID string
	OwnerInputRef  string
	Answers        []byte
	Version        int
}

type EntryStore interface {
	SaveEntry(ctx context.Context, rec EntryRecord) error
	SaveBranchEntry(ctx context.Context, rec EntryRecord) error
	EntryExists(ctx context.Context, projectID int64, entryUUID string) (bool, error)
}

// Receipt describes a persisted upload.
type Receipt struct {
	UUID    string `json:"uuid"`
	Type    string `json:"type"`
	Version int    `json:"project_version"`
}

// Orchestrator coordinates structure lookup, traversal, validation and
// persistence for the web-upload path.
type Orchestrator struct {
	Projects ProjectStore
	Entries  EntryStore
}

// Handle validates payload against the project's current structure. It
// returns a receipt on success, a non-empty error bag on rejection, or an
// error for infrastructure failures. A rejected upload persists nothing and
// touches no counters, so resubmitting it is side-effect free.
func (o *Orchestrator) Handle(ctx context.Context, slug string, payload model.UploadPayload) (*Receipt, *validation.Bag, error) {
	bag := &validation.Bag{}

	project, err := o.Projects.GetProject(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		bag.Push(validation.NewError(validation.CodeProjectNotFound, slug))
		return nil, bag, nil
	}
	if err != nil {
		return nil, nil, err
	}

	data := payload.Data
	if _, err := uuid.FromString(data.ID); err != nil {
		bag.Push(validation.NewError(validation.CodeInvalidAnswer, "id"))
		return nil, bag, nil
	}

	switch data.Type {
	// a payload without an explicit type is a plain entry
	case model.KindEntry, "":
		return o.handleEntry(ctx, project, data)
	case model.KindBranchEntry:
		return o.handleBranchEntry(ctx, project, data)
	default:
		bag.Push(validation.NewError(validation.CodeInvalidAnswer, "type"))
		return nil, bag, nil
	}
}

func (o *Orchestrator) handleEntry(ctx context.Context, project *StoredProject, data model.UploadData) (*Receipt, *validation.Bag, error) {
	bag := &validation.Bag{}

	form, ok := project.Definition.FormByRef(data.FormRef)
	if !ok {
		bag.Push(validation.NewError(validation.CodeFormNotFound, data.FormRef))
		return nil, bag, nil
	}

	answers := data.Answers()
	if bag = validation.ValidateEntry(form, answers); !bag.Empty() {
		return nil, bag, nil
	}

	rec, err := buildRecord(project, data, form.Ref, answers)
	if err != nil {
		return nil, nil, err
	}
	if err := o.Entries.SaveEntry(ctx, rec); err != nil {
		return nil, nil, err
	}
	return &Receipt{UUID: rec.UUID, Type: model.KindEntry, Version: rec.Version}, bag, nil
}

func (o *Orchestrator) handleBranchEntry(ctx context.Context, project *StoredProject, data model.UploadData) (*Receipt, *validation.Bag, error) {
	bag := &validation.Bag{}

	if data.BranchEntry == nil {
		bag.Push(validation.NewError(validation.CodeInvalidAnswer, "branch_entry"))
		return nil, bag, nil
	}

	branch, ok := project.Definition.BranchByRef(data.BranchEntry.OwnerInputRef)
	if !ok {
		bag.Push(validation.NewError(validation.CodeInputNotFound, data.BranchEntry.OwnerInputRef))
		return nil, bag, nil
	}

	// Branch entries hang off an already persisted owner entry.
	owns, err := o.Entries.EntryExists(ctx, project.ID, data.BranchEntry.OwnerEntryUUID)
	if err != nil {
		return nil, nil, err
	}
	if !owns {
		bag.Push(validation.NewError(validation.CodeEntryNotFound, data.BranchEntry.OwnerEntryUUID))
		return nil, bag, nil
	}

	answers := data.Answers()
	if bag = validation.ValidateBranchEntry(branch, answers); !bag.Empty() {
		return nil, bag, nil
	}

	rec, err := buildRecord(project, data, "", answers)
	if err != nil {
		return nil, nil, err
	}
	rec.OwnerEntryUUID = data.BranchEntry.OwnerEntryUUID
	rec.OwnerInputRef = data.BranchEntry.OwnerInputRef
	if err := o.Entries.SaveBranchEntry(ctx, rec); err != nil {
		return nil, nil, err
	}
	return &Receipt{UUID: rec.UUID, Type: model.KindBranchEntry, Version: rec.Version}, bag, nil
}

func buildRecord(project *StoredProject, data model.UploadData, formRef string, answers model.AnswerSet) (EntryRecord, error) {
	raw, err := json.Marshal(answers)
	if err != nil {
		return EntryRecord{}, err
	}
	return EntryRecord{
		UUID:      data.ID,
		ProjectID: project.ID,
		FormRef:   formRef,
		Answers:   raw,
		Version:   project.Version,
	}, nil
}
