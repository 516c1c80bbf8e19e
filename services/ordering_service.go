package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// OrderingService turns the local cart into orders and relays bill and
// waiter requests. Nothing here retries; the customer resubmits.
type OrderingService struct {
	backend  Backend
	app      *AppContext
	resolver *SessionResolver
	state    *KioskState
}

func NewOrderingService(backend Backend, app *AppContext, resolver *SessionResolver, state *KioskState) *OrderingService {
	return &OrderingService{backend: backend, app: app, resolver: resolver, state: state}
}

// SubmitOrder sends the whole cart, creating the session first if needed.
// When the session was reset while the request was in flight the outcome is
// absorbed: no error, Absorbed set, cart left as the reset made it.
func (o *OrderingService) SubmitOrder(ctx context.Context) (*models.OrderConfirmation, error) {
	binding := o.app.Binding()
	if binding == nil || binding.RestaurantID.IsZero() {
		return nil, userError(utils.MsgNotPaired, ErrNotPaired)
	}

	items, gen := o.state.PrepareSubmission()
	if len(items) == 0 {
		return nil, userError(utils.MsgCartEmpty, ErrEmptyCart)
	}

	sessionID, sessionGen, err := o.resolver.EnsureSession(ctx, binding.RestaurantID, binding.TableRef())
	if err != nil {
		if o.resolver.Generation() != gen {
			return o.absorb("", err), nil
		}
		return nil, userError(utils.MsgOrderFailed, err)
	}
	if sessionGen != gen {
		return o.absorb(sessionID, ErrStaleSession), nil
	}

	req := models.OrderRequest{
		TableSessionID: models.FlexID(sessionID),
		RestaurantID:   binding.RestaurantID,
		Items:          make([]models.OrderItemRequest, 0, len(items)),
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		req.Items = append(req.Items, models.NewOrderItemRequest(it))
		ids = append(ids, it.ID)
	}

	raw, err := o.backend.CreateOrder(ctx, req)
	if err != nil {
		if o.resolver.Generation() != gen {
			return o.absorb(sessionID, err), nil
		}
		if IsStatus(err, http.StatusConflict) || IsStatus(err, http.StatusGone) {
			// The server closed the tab before we heard about it. Forget the
			// session so the next attempt opens a new one; the cart stays.
			o.resolver.Forget(sessionID)
			return nil, userError(utils.MsgOrderFailed, fmt.Errorf("%w: %v", ErrStaleSession, err))
		}
		return nil, userError(utils.MsgOrderFailed, err)
	}

	if !o.state.CompleteSubmission(gen, ids) {
		return o.absorb(sessionID, ErrStaleSession), nil
	}
	utils.InfoLogger.Printf("Order with %d lines sent on session %s", len(items), sessionID)
	return &models.OrderConfirmation{SessionID: sessionID, Order: raw}, nil
}

func (o *OrderingService) absorb(sessionID string, cause error) *models.OrderConfirmation {
	utils.InfoLogger.WithField("session", sessionID).
		Infof("Order outcome discarded, session was reset meanwhile: %v", cause)
	return &models.OrderConfirmation{SessionID: sessionID, Absorbed: true}
}

// RequestBill asks staff to bring the bill, paid by card or cash.
func (o *OrderingService) RequestBill(ctx context.Context, paymentMethod string) error {
	if !models.ValidPaymentMethod(paymentMethod) {
		return userError(utils.MsgBillMethodRequired, fmt.Errorf("payment method %q", paymentMethod))
	}
	return o.notify(ctx, models.NotificationRequestBill, paymentMethod, utils.MsgBillFailed)
}

// CallWaiter asks staff to come to the table.
func (o *OrderingService) CallWaiter(ctx context.Context) error {
	return o.notify(ctx, models.NotificationCallWaiter, "", utils.MsgWaiterFailed)
}

func (o *OrderingService) notify(ctx context.Context, kind models.NotificationType, paymentMethod, failKey string) error {
	binding := o.app.Binding()
	if binding == nil || binding.TableRef().IsZero() {
		return userError(utils.MsgNotPaired, ErrNotPaired)
	}
	gen := o.resolver.Generation()

	err := o.backend.CreateNotification(ctx, models.NotificationRequest{
		TableID:       binding.TableRef(),
		RestaurantID:  binding.RestaurantID,
		Type:          kind,
		PaymentMethod: paymentMethod,
	})
	if err != nil {
		return userError(failKey, err)
	}

	if !o.state.AcknowledgeWaiter(gen) {
		utils.InfoLogger.Printf("%s acknowledged after a reset, not showing confirmation", kind)
		return nil
	}
	utils.InfoLogger.Printf("%s sent for table %s", kind, binding.TableRef())
	return nil
}
