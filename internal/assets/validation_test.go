package assets

import (
	"errors"
	"testing"
)

func TestValidateAssetName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "simple name", input: "wrapper"},
		{name: "name with hyphen", input: "dark-theme"},
		{name: "name with underscore", input: "book_review"},
		{name: "empty name", input: "", wantErr: ErrInvalidAssetName},
		{name: "forward slash", input: "templates/wrapper", wantErr: ErrInvalidAssetName},
		{name: "backslash", input: "templates\\wrapper", wantErr: ErrInvalidAssetName},
		{name: "parent traversal", input: "..", wantErr: ErrInvalidAssetName},
		{name: "extension", input: "wrapper.html", wantErr: ErrInvalidAssetName},
		{name: "null byte", input: "wrap\x00per", wantErr: ErrInvalidAssetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateAssetName(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAssetName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
