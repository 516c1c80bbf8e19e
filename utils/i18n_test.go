package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"en": "us", "US": "us", " pt ": "br", "br": "br", "es": "es", "de": "de", "xx": "", "": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLanguage(in), in)
	}
}

func TestLocalize(t *testing.T) {
	assert.Equal(t, "Tu carrito está vacío", Localize("es", MsgCartEmpty))
	assert.Equal(t, "Your cart is empty", Localize("us", MsgCartEmpty))
	assert.Equal(t, "Seu carrinho está vazio", Localize("pt", MsgCartEmpty))
	// No German table: English is shown.
	assert.Equal(t, "Your cart is empty", Localize("de", MsgCartEmpty))
}

func TestEveryMessageIsTranslated(t *testing.T) {
	for key, translations := range catalog {
		for _, lang := range []string{"us", "es", "br"} {
			assert.NotEqual(t, key, Localize(lang, key), "%s/%s", key, lang)
		}
		assert.Len(t, translations, 3, key)
	}
}
