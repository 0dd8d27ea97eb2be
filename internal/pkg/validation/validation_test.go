package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidFullname(t *testing.T) {
	assert.True(t, IsValidFullname("Ama Owusu-Ansah"))
	assert.True(t, IsValidFullname("Chidi O'Neil Jr."))
	assert.True(t, IsValidFullname("Adébáyọ̀"))
	assert.False(t, IsValidFullname(""))
	assert.False(t, IsValidFullname("R2-D2"))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("+233 24 123 4567"))
	assert.True(t, IsValidPhone("(020) 7946-0958"))
	assert.False(t, IsValidPhone("12345"))
	assert.False(t, IsValidPhone("+1 call me"))
	assert.False(t, IsValidPhone("+1234567890123456"))
}

func TestIsValidHTTPURL(t *testing.T) {
	assert.True(t, IsValidHTTPURL("https://cdn.example.com/a.png"))
	assert.False(t, IsValidHTTPURL("javascript:alert(1)"))
	assert.False(t, IsValidHTTPURL("/relative/path"))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("kofi@example.com"))
	assert.False(t, IsValidEmail("kofi@example"))
}
