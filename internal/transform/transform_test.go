package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Poistot/internal/marc"
)

func testRecord() *marc.Record {
	return &marc.Record{
		Leader: "00000cam a2200000 i 4500",
		Fields: []marc.Field{
			{Tag: "001", Value: "123"},
			{Tag: "245", Ind1: "1", Ind2: "0", Subfields: []marc.Subfield{{Code: "a", Value: "Title"}}},
			{Tag: marc.TagLocalOwner, Subfields: []marc.Subfield{{Code: "a", Value: "TEST"}}},
			{Tag: marc.TagLocalOwner, Subfields: []marc.Subfield{{Code: "a", Value: "OTHER"}}},
			{Tag: marc.TagLocalID, Subfields: []marc.Subfield{{Code: "c", Value: "555"}, {Code: "b", Value: "test"}}},
			{Tag: marc.TagLocalID, Subfields: []marc.Subfield{{Code: "c", Value: "9"}, {Code: "b", Value: "other"}}},
		},
	}
}

// --- Registry Tests ---

func TestRegistry_Default(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{OpRemoveLocalReference}, r.Names())
}

func TestRegistry_UnknownOperation(t *testing.T) {
	_, err := DefaultRegistry().Transform(context.Background(), "MERGE", testRecord(), Options{})
	assert.ErrorIs(t, err, ErrOperationNotFound)
}

func TestRegistry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DefaultRegistry().Transform(ctx, OpRemoveLocalReference, testRecord(), Options{LibraryTag: "TEST"})
	assert.ErrorIs(t, err, context.Canceled)
}

// --- RemoveLocalReference Tests ---

func TestRemoveLocalReference(t *testing.T) {
	rec := testRecord()
	before := rec.String()

	result, err := DefaultRegistry().Transform(context.Background(), OpRemoveLocalReference, rec, Options{
		LibraryTag:      "test",
		ExpectedLocalID: "555",
	})
	require.NoError(t, err)

	assert.Equal(t, before, rec.String(), "input record must not change")
	assert.Len(t, result.Record.GetFields(marc.TagLocalOwner), 1)
	assert.Len(t, result.Record.GetFields(marc.TagLocalID), 1)
	assert.False(t, result.Record.ContainsFieldWithValue(marc.TagLocalOwner, "a", "TEST"))
	assert.Equal(t, []string{"Removed LOW: TEST", "Removed SID: 555"}, result.Report)
}

func TestRemoveLocalReference_Bypass(t *testing.T) {
	result, err := NewRemoveLocalReference().Apply(context.Background(), testRecord(), Options{
		LibraryTag:       "TEST",
		BypassTagRemoval: true,
	})
	require.NoError(t, err)

	assert.Len(t, result.Record.GetFields(marc.TagLocalID), 2)
	assert.Equal(t, []string{"Removed LOW: TEST"}, result.Report)
}

func TestRemoveLocalReference_LocalIDMismatch(t *testing.T) {
	op := NewRemoveLocalReference()

	_, err := op.Apply(context.Background(), testRecord(), Options{LibraryTag: "TEST", ExpectedLocalID: "777"})
	require.Error(t, err)
	assert.Equal(t, "Record does not have SID for TEST with local id 777", err.Error())

	_, err = op.Apply(context.Background(), testRecord(), Options{
		LibraryTag:       "TEST",
		ExpectedLocalID:  "777",
		SkipLocalIDCheck: true,
	})
	assert.NoError(t, err)
}

func TestRemoveLocalReference_NoChanges(t *testing.T) {
	rec := testRecord()

	result, err := NewRemoveLocalReference().Apply(context.Background(), rec, Options{LibraryTag: "NONE"})
	require.NoError(t, err)

	assert.Equal(t, rec.String(), result.Record.String())
	assert.Empty(t, result.Report)
}

func TestRemoveLocalReference_InvalidInput(t *testing.T) {
	op := NewRemoveLocalReference()

	_, err := op.Apply(context.Background(), &marc.Record{}, Options{LibraryTag: "TEST"})
	assert.ErrorIs(t, err, marc.ErrInvalidRecord)

	_, err = op.Apply(context.Background(), testRecord(), Options{})
	assert.ErrorIs(t, err, ErrMissingLibraryTag)
}
