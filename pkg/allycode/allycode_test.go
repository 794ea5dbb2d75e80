package allycode

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Code
		wantErr bool
	}{
		{name: "plain digits", in: "123456789", want: "123456789"},
		{name: "dashed", in: "123-456-789", want: "123456789"},
		{name: "spaced", in: " 123 456 789 ", want: "123456789"},
		{name: "dotted", in: "123.456.789", want: "123456789"},
		{name: "letters", in: "12AB56789", wantErr: true},
		{name: "too short", in: "12345678", wantErr: true},
		{name: "too long", in: "1234567890", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "leading separator", in: "-123456789", wantErr: true},
		{name: "trailing separator", in: "123456789-", wantErr: true},
		{name: "double separator", in: "123--456789", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalid", tt.in, err)
				}
				if Valid(tt.in) {
					t.Errorf("Valid(%q) = true, want false", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCodeString(t *testing.T) {
	if got := Code("123456789").String(); got != "123-456-789" {
		t.Errorf("String() = %q, want 123-456-789", got)
	}
}
