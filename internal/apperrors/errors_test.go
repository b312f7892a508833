package apperrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AiSchool-Admin/quran-miracles/internal/apperrors"
)

func TestError_MessageIncludesStageWhenSet(t *testing.T) {
	err := &apperrors.Error{Kind: apperrors.KindInternal, Message: "boom", Stage: "science"}
	assert.Equal(t, "science: internal: boom", err.Error())
}

func TestError_MessageOmitsStageWhenUnset(t *testing.T) {
	err := &apperrors.Error{Kind: apperrors.KindInvalidInput, Message: "bad query"}
	assert.Equal(t, "invalid_input: bad query", err.Error())
}

func TestWrap_NilErrorYieldsNilError(t *testing.T) {
	assert.Nil(t, apperrors.Wrap(apperrors.KindTransient, "quran_rag", nil))
}

func TestWrap_PreservesUnwrapChain(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := apperrors.Wrap(apperrors.KindTransient, "quran_rag", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOf_UnclassifiedErrorDefaultsToInternal(t *testing.T) {
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(errors.New("plain")))
}

func TestKindOf_ExtractsKindThroughWrapping(t *testing.T) {
	err := apperrors.Wrap(apperrors.KindCancelled, "", errors.New("ctx done"))
	assert.Equal(t, apperrors.KindCancelled, apperrors.KindOf(err))
}

func TestIsTransient_TrueOnlyForTransientKind(t *testing.T) {
	assert.True(t, apperrors.IsTransient(apperrors.New(apperrors.KindTransient, "timeout")))
	assert.False(t, apperrors.IsTransient(apperrors.New(apperrors.KindInternal, "bug")))
}

func TestIsCancelled_TrueOnlyForCancelledKind(t *testing.T) {
	assert.True(t, apperrors.IsCancelled(apperrors.New(apperrors.KindCancelled, "client disconnected")))
	assert.False(t, apperrors.IsCancelled(apperrors.New(apperrors.KindTransient, "timeout")))
}
