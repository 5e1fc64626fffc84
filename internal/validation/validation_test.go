package validation

import (
	"testing"

	"accessdesk/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expectOK bool
	}{
		{"simple", "alice", true},
		{"dots and dashes", "j.doe-2", true},
		{"too short", "al", false},
		{"too long", "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijX", false},
		{"space", "al ice", false},
		{"symbol", "alice!", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if tt.expectOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword("        "))
	assert.Error(t, ValidatePassword(string(make([]byte, 73))))
}

type sample struct {
	Username string   `validate:"required,username"`
	Role     string   `validate:"omitempty,role"`
	Levels   []string `validate:"required,min=1,dive,access_level"`
}

func TestStruct(t *testing.T) {
	ok := sample{Username: "alice", Role: "Manager", Levels: []string{"Read"}}
	assert.NoError(t, Struct(ok))

	tests := []struct {
		name    string
		mutate  func(s *sample)
		message string
	}{
		{"missing username", func(s *sample) { s.Username = "" }, "username is required"},
		{"lowercase role", func(s *sample) { s.Role = "manager" }, `invalid role "manager"`},
		{"bad level", func(s *sample) { s.Levels = []string{"Read", "Execute"} }, `invalid access level "Execute"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ok
			tt.mutate(&s)
			err := Struct(s)
			assert.True(t, models.IsCode(err, models.CodeValidation))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
