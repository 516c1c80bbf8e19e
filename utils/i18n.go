package utils

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys for the short localized texts the kiosk shows.
const (
	MsgOrderSent          = "order_sent"
	MsgOrderFailed        = "order_failed"
	MsgCartEmpty          = "cart_empty"
	MsgNotPaired          = "not_paired"
	MsgBillFailed         = "bill_failed"
	MsgBillMethodRequired = "bill_method_required"
	MsgWaiterFailed       = "waiter_failed"
	MsgWaiterNotified     = "waiter_notified"
	MsgSessionClosed      = "session_closed"
	MsgDeviceUnbound      = "device_unbound"
	MsgInvalidTableToken  = "invalid_table_token"
	MsgPairingFailed      = "pairing_failed"
	MsgInvalidPIN         = "invalid_pin"
	MsgGenericError       = "generic_error"
)

var (
	tagEnglish    = language.English
	tagSpanish    = language.Spanish
	tagPortuguese = language.BrazilianPortuguese
)

var catalog = map[string]map[language.Tag]string{
	MsgOrderSent: {
		tagEnglish:    "Order sent successfully!",
		tagSpanish:    "¡Pedido enviado con éxito!",
		tagPortuguese: "Pedido enviado com sucesso!",
	},
	MsgOrderFailed: {
		tagEnglish:    "Error sending order.",
		tagSpanish:    "Error al enviar el pedido.",
		tagPortuguese: "Erro ao enviar pedido.",
	},
	MsgCartEmpty: {
		tagEnglish:    "Your cart is empty",
		tagSpanish:    "Tu carrito está vacío",
		tagPortuguese: "Seu carrinho está vazio",
	},
	MsgNotPaired: {
		tagEnglish:    "This device is not linked to a table.",
		tagSpanish:    "Este dispositivo no está vinculado a una mesa.",
		tagPortuguese: "Este dispositivo não está vinculado a uma mesa.",
	},
	MsgBillFailed: {
		tagEnglish:    "Error requesting bill.",
		tagSpanish:    "Error al solicitar la cuenta.",
		tagPortuguese: "Erro ao solicitar conta.",
	},
	MsgBillMethodRequired: {
		tagEnglish:    "Please select a payment method.",
		tagSpanish:    "Por favor, seleccione un método de pago.",
		tagPortuguese: "Por favor, selecione um método de pagamento.",
	},
	MsgWaiterFailed: {
		tagEnglish:    "Error calling the waiter.",
		tagSpanish:    "Error al llamar al camarero.",
		tagPortuguese: "Erro ao chamar garçom.",
	},
	MsgWaiterNotified: {
		tagEnglish:    "A waiter is on the way.",
		tagSpanish:    "Un camarero está en camino.",
		tagPortuguese: "O garçom está a caminho.",
	},
	MsgSessionClosed: {
		tagEnglish:    "Your bill has been paid. Thank you!",
		tagSpanish:    "Su cuenta ha sido pagada. ¡Gracias!",
		tagPortuguese: "Pagamento confirmado. A mesa será reiniciada.",
	},
	MsgDeviceUnbound: {
		tagEnglish:    "Device disconnected by the administrator.",
		tagSpanish:    "Dispositivo desconectado por el administrador.",
		tagPortuguese: "Dispositivo desconectado pelo administrador.",
	},
	MsgInvalidTableToken: {
		tagEnglish:    "Invalid or expired table code.",
		tagSpanish:    "Código de mesa inválido o caducado.",
		tagPortuguese: "Código de mesa inválido ou expirado.",
	},
	MsgPairingFailed: {
		tagEnglish:    "Could not link the table. Try again or call a waiter.",
		tagSpanish:    "No se pudo vincular la mesa. Inténtelo de nuevo o llame al camarero.",
		tagPortuguese: "Não foi possível abrir a mesa. Tente novamente ou chame o garçom.",
	},
	MsgInvalidPIN: {
		tagEnglish:    "Invalid maintenance PIN.",
		tagSpanish:    "PIN de mantenimiento inválido.",
		tagPortuguese: "PIN de manutenção inválido.",
	},
	MsgGenericError: {
		tagEnglish:    "Something went wrong. Please try again.",
		tagSpanish:    "Algo salió mal. Inténtelo de nuevo.",
		tagPortuguese: "Algo deu errado. Tente novamente.",
	},
}

func init() {
	for key, translations := range catalog {
		for tag, text := range translations {
			if err := message.SetString(tag, key, text); err != nil {
				panic(err)
			}
		}
	}
}

// Kiosk language codes as chosen on the flag screen.
var languageCodes = map[string]string{
	"us": "us", "en": "us",
	"es": "es",
	"br": "br", "pt": "br",
	"de": "de", "it": "it", "fr": "fr",
}

// NormalizeLanguage maps a flag code or ISO code to the kiosk code, or ""
// when the language is not offered.
func NormalizeLanguage(code string) string {
	return languageCodes[strings.ToLower(strings.TrimSpace(code))]
}

// LanguageTag returns the catalog tag for a kiosk language code. Languages
// without a translation table fall back to English.
func LanguageTag(code string) language.Tag {
	switch NormalizeLanguage(code) {
	case "es":
		return tagSpanish
	case "br":
		return tagPortuguese
	default:
		return tagEnglish
	}
}

// Localize renders a message key in the given kiosk language.
func Localize(lang, key string) string {
	return message.NewPrinter(LanguageTag(lang)).Sprintf(key)
}
