package models

type NotificationType string

const (
	NotificationRequestBill NotificationType = "REQUEST_BILL"
	NotificationCallWaiter  NotificationType = "CALL_WAITER"
)

const (
	PaymentMethodCard = "card"
	PaymentMethodCash = "cash"
)

// ValidPaymentMethod reports whether the bill request carries a known method.
func ValidPaymentMethod(m string) bool {
	return m == PaymentMethodCard || m == PaymentMethodCash
}

// NotificationRequest is the body of POST /notifications.
type NotificationRequest struct {
	TableID       FlexID           `json:"tableId"`
	RestaurantID  FlexID           `json:"restaurantId"`
	Type          NotificationType `json:"type"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
}
