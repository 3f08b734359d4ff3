package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["message", "contact"],
	"additionalProperties": false,
	"properties": {
		"message": {"type": "string", "minLength": 1, "maxLength": 10},
		"kind": {"type": "string", "enum": ["a", "b"]},
		"contact": {
			"type": "object",
			"required": ["email"],
			"properties": {"email": {"type": "string"}}
		}
	}
}`

func TestSchema_Valid(t *testing.T) {
	s := MustCompile("test", testSchema)

	res, err := s.ValidateBytes([]byte(`{"message": "hi", "kind": "a", "contact": {"email": "x@y.io"}}`))
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestSchema_Errors(t *testing.T) {
	s := MustCompile("test", testSchema)

	res, err := s.ValidateBytes([]byte(`{"message": "far too long for this", "kind": "c", "extra": 1, "contact": {}}`))
	require.NoError(t, err)
	assert.False(t, res.Valid)

	assert.True(t, res.HasErrors("message"))
	assert.Equal(t, "MAX_LENGTH_VIOLATION", res.GetErrorsForField("message")[0].Code)
	assert.Equal(t, "INVALID_ENUM_VALUE", res.GetErrorsForField("kind")[0].Code)
	assert.True(t, res.HasErrors("contact.email"))
	assert.Len(t, res.GetErrorsForField("contact"), 1)
	assert.Len(t, res.GetErrorMessages(), len(res.Errors))
}

func TestSchema_MissingRequiredAtRoot(t *testing.T) {
	s := MustCompile("test", testSchema)

	res, err := s.ValidateGo(map[string]interface{}{"message": "hi"})
	require.NoError(t, err)
	assert.False(t, res.Valid)
	require.True(t, res.HasErrors("contact"))
	assert.Equal(t, "REQUIRED_FIELD_MISSING", res.GetErrorsForField("contact")[0].Code)
}

func TestSchema_NotJSON(t *testing.T) {
	s := MustCompile("test", testSchema)

	_, err := s.ValidateBytes([]byte(`{not json`))
	assert.Error(t, err)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile("broken", `{"type": 12}`)
	assert.Error(t, err)
}

func TestValidateEmailAndPhone(t *testing.T) {
	assert.True(t, ValidateEmail("ops@fleet.example.com"))
	assert.False(t, ValidateEmail("ops@fleet"))
	assert.True(t, ValidatePhone("+1 (555) 010-2030"))
	assert.False(t, ValidatePhone("12345"))
}
