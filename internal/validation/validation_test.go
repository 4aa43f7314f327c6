package validation

import (
	"errors"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@x.com", true},
		{"student.name@mail.example.org", true},
		{"", false},
		{"plainaddress", false},
		{"@x.com", false},
		{"a@", false},
		{"a@x", false},
		{"a@.com", false},
		{"a@x.", false},
		{"a a@x.com", false},
		{"a@x@y.com", false},
	}

	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"49.99", 4999, false},
		{"49", 4900, false},
		{"0.01", 1, false},
		{"100.5", 10050, false},
		{" 12.00 ", 1200, false},
		{"", 0, true},
		{"0", 0, true},
		{"0.00", 0, true},
		{"-5", 0, true},
		{"12.345", 0, true},
		{"200000000000000000", 0, true},
		{"99999999999999999999.99", 0, true},
		{"abc", 0, true},
		{"12,50", 0, true},
		{".99", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePrice(%q): expected error, got %d", tt.in, got)
			}
			if err != nil && !errors.Is(err, ErrInvalidPrice) {
				t.Errorf("ParsePrice(%q): error %v is not ErrInvalidPrice", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePrice(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePrice(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{4999, "49.99"},
		{4900, "49.00"},
		{1, "0.01"},
		{10050, "100.50"},
	}

	for _, tt := range tests {
		if got := FormatPrice(tt.cents); got != tt.want {
			t.Errorf("FormatPrice(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
