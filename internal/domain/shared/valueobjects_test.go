package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validStudentUUID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

func TestStudentID_Validate(t *testing.T) {
	assert.NoError(t, StudentID(validStudentUUID).Validate())

	for _, bad := range []string{
		"",
		"not-a-uuid",
		"1b4e28ba-2fa1-11d2-883f",
		"1b4e28ba-2fa1-11d2-883f-0016d3cca427-extra",
	} {
		err := StudentID(bad).Validate()
		require.Error(t, err, "id %q", bad)
		assert.True(t, IsValidation(err))
	}
}

func TestNewStudentID_NormalizesInput(t *testing.T) {
	sid, err := NewStudentID("  1B4E28BA-2FA1-11D2-883F-0016D3CCA427 ")
	require.NoError(t, err)
	assert.Equal(t, validStudentUUID, sid.String())
	assert.True(t, sid.IsValid())

	_, err = NewStudentID("nope")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}
