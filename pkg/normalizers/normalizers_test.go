package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "jane doe", NormalizeName("  Jane   DOE "))
	assert.Equal(t, "janedoe", NormalizeName("Jane-Doe"))
	assert.Equal(t, "jane doe", NormalizeName("Jane Doe Jr."))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane.doe@example.edu", NormalizeEmail(" Jane.Doe@Example.EDU "))
}

func TestEmailLocalPart(t *testing.T) {
	assert.Equal(t, "jane.doe", EmailLocalPart("Jane.Doe@example.edu"))
	assert.Equal(t, "not-an-email", EmailLocalPart("not-an-email"))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5550001111", NormalizePhone("(555) 000-1111"))
	assert.Equal(t, "15550001111", NormalizePhone("+1 555 000 1111"))
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "123456", DigitsOnly("s12-34.56x"))
	assert.Equal(t, "", DigitsOnly("abc"))
}

func TestNormalizeDepartment(t *testing.T) {
	assert.Equal(t, "computer_science", NormalizeDepartment(" Computer Science "))
}

func TestRegistry(t *testing.T) {
	fn, ok := Get("lowercase")
	assert.True(t, ok)
	assert.Equal(t, "abc", fn("ABC"))

	_, ok = Get("nonexistent")
	assert.False(t, ok)

	// unknown normalizer passes the value through untouched
	assert.Equal(t, "ABC", Apply("ABC", "nonexistent"))
}
