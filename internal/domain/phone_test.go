package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already normalized", "254712345678", "254712345678"},
		{"leading zero", "0712345678", "254712345678"},
		{"leading plus", "+254712345678", "254712345678"},
		{"bare local number", "712345678", "254712345678"},
		{"leading zero one prefix", "0112345678", "254112345678"},
		{"surrounding whitespace", "  0712345678 ", "254712345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePhone(tt.in))
		})
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	inputs := []string{"0712345678", "+254712345678", "254712345678", "712345678"}
	for _, in := range inputs {
		once := NormalizePhone(in)
		assert.Equal(t, once, NormalizePhone(once), "normalizing twice must not change %q", in)
	}
}

func TestIsValidPhone(t *testing.T) {
	valid := []string{"0712345678", "+254712345678", "254712345678", "0112345678"}
	for _, in := range valid {
		assert.True(t, IsValidPhone(in), "expected %q to be valid", in)
	}

	invalid := []string{
		"",
		"12345",
		"0812345678",     // 8xx is not a mobile prefix
		"25471234567",    // too short
		"2547123456789",  // too long
		"07123456xx",     // non-digits
		"+44712345678",   // wrong country code
	}
	for _, in := range invalid {
		assert.False(t, IsValidPhone(in), "expected %q to be invalid", in)
	}
}
