package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answer(raw string) Answer {
	return Answer{Value: json.RawMessage(raw)}
}

func TestAnswerScalar(t *testing.T) {
	s, err := answer(`"hello"`).Scalar()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	s, err = answer(`""`).Scalar()
	require.NoError(t, err)
	assert.Equal(t, "", s)

	// absent and null answers decode to the empty scalar
	s, err = Answer{}.Scalar()
	require.NoError(t, err)
	assert.Equal(t, "", s)

	s, err = answer(`null`).Scalar()
	require.NoError(t, err)
	assert.Equal(t, "", s)

	_, err = answer(`42`).Scalar()
	assert.ErrorIs(t, err, ErrAnswerShape)

	_, err = answer(`["a"]`).Scalar()
	assert.ErrorIs(t, err, ErrAnswerShape)
}

func TestAnswerChoices(t *testing.T) {
	refs, err := answer(`["o1","o2"]`).Choices()
	require.NoError(t, err)
	assert.Equal(t, []string{"o1", "o2"}, refs)

	refs, err = answer(`[]`).Choices()
	require.NoError(t, err)
	assert.Empty(t, refs)

	refs, err = Answer{}.Choices()
	require.NoError(t, err)
	assert.Nil(t, refs)

	_, err = answer(`"o1"`).Choices()
	assert.ErrorIs(t, err, ErrAnswerShape)

	_, err = answer(`[1,2]`).Choices()
	assert.ErrorIs(t, err, ErrAnswerShape)
}

func TestAnswerLocation(t *testing.T) {
	loc, err := answer(`{"latitude":"51.5","longitude":"-0.1","accuracy":"4"}`).Location()
	require.NoError(t, err)
	assert.Equal(t, Location{Latitude: "51.5", Longitude: "-0.1", Accuracy: "4"}, loc)
	assert.False(t, loc.Empty())

	loc, err = answer(`{"latitude":"","longitude":"","accuracy":""}`).Location()
	require.NoError(t, err)
	assert.True(t, loc.Empty())

	// partially filled geodata is not empty
	loc, err = answer(`{"latitude":"51.5","longitude":"","accuracy":""}`).Location()
	require.NoError(t, err)
	assert.False(t, loc.Empty())

	loc, err = Answer{}.Location()
	require.NoError(t, err)
	assert.True(t, loc.Empty())

	_, err = answer(`"51.5,-0.1"`).Location()
	assert.ErrorIs(t, err, ErrAnswerShape)
}

func TestUploadPayloadDecoding(t *testing.T) {
	raw := `{
		"data": {
			"id": "6bcbca3c-8f6f-4327-9da2-307b8d5c226b",
			"type": "entry",
			"form_ref": "form-1",
			"entry": {
				"answers": {
					"q1": {"answer": "yes"},
					"q2": {"answer": ["o1"]}
				}
			}
		}
	}`

	var payload UploadPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.Equal(t, KindEntry, payload.Data.Type)
	assert.Equal(t, "form-1", payload.Data.FormRef)

	answers := payload.Data.Answers()
	require.NotNil(t, answers)

	a, ok := answers.Get("q1")
	require.True(t, ok)
	s, err := a.Scalar()
	require.NoError(t, err)
	assert.Equal(t, "yes", s)

	_, ok = answers.Get("missing")
	assert.False(t, ok)
}

func TestUploadPayloadBranchEntry(t *testing.T) {
	raw := `{
		"data": {
			"id": "429cf9a0-3f93-4a4c-b2f8-0a0000000000",
			"type": "branch_entry",
			"branch_entry": {
				"answers": {"q4": {"answer": ""}},
				"owner_entry_uuid": "6bcbca3c-8f6f-4327-9da2-307b8d5c226b",
				"owner_input_ref": "b1"
			}
		}
	}`

	var payload UploadPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	require.NotNil(t, payload.Data.BranchEntry)
	assert.Equal(t, "b1", payload.Data.BranchEntry.OwnerInputRef)
	assert.NotNil(t, payload.Data.Answers())
}

func TestAnswersNilWhenBodyMissing(t *testing.T) {
	assert.Nil(t, UploadData{Type: KindEntry}.Answers())
	assert.Nil(t, UploadData{Type: KindBranchEntry}.Answers())
}
