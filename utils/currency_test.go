package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	assert.Contains(t, FormatCurrency(20, "EUR"), "€")
	assert.Contains(t, FormatCurrency(20, "brl"), "R$")
	assert.Contains(t, FormatCurrency(20, "USD"), "$")
	// Unknown codes fall back to euros.
	assert.Equal(t, FormatCurrency(5, "EUR"), FormatCurrency(5, "???"))
}
