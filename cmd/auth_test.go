package cmd

import "testing"

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "nyk_abcdef1234567890", false},
		{"empty", "", true},
		{"too short", "nyk_a", true},
		{"contains space", "nyk_abc def12345", true},
		{"contains newline", "nyk_abcdef123\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
