package validation

import (
	"strings"
	"testing"
)

func TestValidateProductName(t *testing.T) {
	tests := []struct {
		name    string
		product string
		wantErr bool
	}{
		{"valid simple name", "premium", false},
		{"valid with numbers", "tier2", false},
		{"valid with hyphen", "vip-plus", false},
		{"valid with underscore", "vip_plus", false},
		{"valid single char", "x", false},
		{"empty name", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"max length ok", strings.Repeat("a", 64), false},
		{"uppercase not normalized", "Premium", true},
		{"contains space", "vip plus", true},
		{"contains dot", "vip.plus", true},
		{"contains slash", "vip/plus", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProductName(tt.product)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProductName(%q) error = %v, wantErr %v", tt.product, err, tt.wantErr)
			}
		})
	}
}

func TestValidateActorID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"valid snowflake", "184213569535475713", false},
		{"valid short id", "u1", false},
		{"valid with prefix", "user:184213569535475713", false},
		{"empty", "", true},
		{"too long", strings.Repeat("9", 129), true},
		{"max length ok", strings.Repeat("9", 128), false},
		{"contains space", "1842 1356", true},
		{"contains tab", "1842\t1356", true},
		{"contains newline", "1842\n1356", true},
		{"contains del", "1842\x7f1356", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateActorID("redeemer_id", tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateActorID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateActorIDFieldName(t *testing.T) {
	err := ValidateActorID("tenant_id", "")
	if err == nil {
		t.Fatal("Expected error for empty id")
	}
	if !strings.Contains(err.Error(), "tenant_id") {
		t.Errorf("Expected error to name the field, got %q", err.Error())
	}
}

func TestValidateKeyInput(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "U7MRCDLVJBNVZOAG4I6WRGCQ66AHHJLQ2QWRK6MD3AB", false},
		{"valid lowercase", "u7mrcdlvjbnvzoag4i6wrgcq66ahhjlq2qwrk6md3ab", false},
		{"valid with whitespace", "  abc  ", false},
		{"empty", "", true},
		{"too long", strings.Repeat("A", 257), true},
		{"max length ok", strings.Repeat("A", 256), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyInput(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateKeyInput(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.HasErrors() {
		t.Error("Expected empty collection to have no errors")
	}

	errs.Add("key", "key must not be empty")
	if !errs.HasErrors() {
		t.Error("Expected collection to have errors after Add")
	}
	if got := errs.Error(); got != "key: key must not be empty" {
		t.Errorf("Expected single error message, got %q", got)
	}

	errs.Add("redeemer_id", "redeemer_id must not be empty")
	errs.Add("tenant_id", "tenant_id must not be empty")
	if got := errs.Error(); got != "key: key must not be empty (and 2 more errors)" {
		t.Errorf("Expected aggregated error message, got %q", got)
	}
}
