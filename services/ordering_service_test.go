package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/testsupport"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

func userKey(t *testing.T, err error) string {
	t.Helper()
	var ue *UserError
	require.True(t, errors.As(err, &ue), "expected a UserError, got %v", err)
	return ue.Key
}

func TestSubmitOrderConcurrentCreatesOneSession(t *testing.T) {
	e := newEnv(t)
	e.paired(t)
	e.backend.Lock()
	e.backend.SessionDelay = 50 * time.Millisecond
	e.backend.Unlock()

	_, err := e.kiosk.State.AddItem(priced(10, 2))
	require.NoError(t, err)

	const n = 8
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			conf, err := e.kiosk.Ordering.SubmitOrder(context.Background())
			assert.NoError(t, err)
			if conf != nil {
				assert.Equal(t, testsupport.SessionID(1), conf.SessionID)
			}
		}()
	}
	close(start)
	wg.Wait()

	_, sessions, orders, _ := e.backend.Counts()
	assert.Equal(t, 1, sessions)
	assert.Equal(t, n, orders)
	e.backend.Lock()
	for _, o := range e.backend.Orders {
		assert.Equal(t, models.FlexID(testsupport.SessionID(1)), o.TableSessionID)
		assert.Equal(t, models.FlexID(testsupport.TestRestaurantID), o.RestaurantID)
	}
	e.backend.Unlock()
	assert.Zero(t, e.kiosk.State.Cart().Count)
}

func TestSubmitOrderWireFormat(t *testing.T) {
	e := newEnv(t)
	e.paired(t)

	variant := 12.5
	item := models.CartItem{
		ProductID:    "11",
		VariantID:    "3",
		VariantPrice: &variant,
		BasePrice:    10,
		Modifiers:    []models.Modifier{{ID: "5", Price: 1}, {ID: "6", Price: 0.5}},
		Quantity:     2,
		Observation:  "sin cebolla",
	}
	_, err := e.kiosk.State.AddItem(item)
	require.NoError(t, err)
	_, err = e.kiosk.State.AddItem(priced(4, 1))
	require.NoError(t, err)
	require.NoError(t, e.kiosk.State.OpenModal(models.ModalCart))

	conf, err := e.kiosk.Ordering.SubmitOrder(context.Background())
	require.NoError(t, err)
	assert.False(t, conf.Absorbed)
	assert.NotEmpty(t, conf.Order)

	e.backend.Lock()
	require.Len(t, e.backend.Orders, 1)
	got := e.backend.Orders[0]
	e.backend.Unlock()

	require.Len(t, got.Items, 2)
	assert.Equal(t, models.OrderItemRequest{
		ProductID:        "11",
		ProductVariantID: "3",
		Quantity:         2,
		Modifiers:        []models.FlexID{"5", "6"},
		Observation:      "sin cebolla",
	}, got.Items[0])
	assert.Equal(t, models.FlexID(""), got.Items[1].ProductVariantID)
	assert.Equal(t, []models.FlexID{}, got.Items[1].Modifiers)

	snap := e.kiosk.State.Snapshot()
	assert.Zero(t, snap.Cart.Count)
	assert.NotContains(t, snap.UI.Modals, models.ModalCart)
}

func TestSubmitEmptyCartMakesNoCall(t *testing.T) {
	e := newEnv(t)
	e.paired(t)

	_, err := e.kiosk.Ordering.SubmitOrder(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, utils.MsgCartEmpty, userKey(t, err))

	_, sessions, orders, _ := e.backend.Counts()
	assert.Zero(t, sessions)
	assert.Zero(t, orders)
}

func TestSubmitFailureKeepsCart(t *testing.T) {
	e := newEnv(t)
	e.paired(t)
	e.backend.Lock()
	e.backend.OrderStatus = http.StatusInternalServerError
	e.backend.Unlock()

	_, err := e.kiosk.State.AddItem(priced(10, 1))
	require.NoError(t, err)

	_, err = e.kiosk.Ordering.SubmitOrder(context.Background())
	assert.Equal(t, utils.MsgOrderFailed, userKey(t, err))
	assert.Equal(t, 1, e.kiosk.State.Cart().Count)
	assert.Equal(t, testsupport.SessionID(1), e.kiosk.Resolver.SessionID(), "session survives an order failure")
}

func TestSubmitAgainstClosedSessionForgetsIt(t *testing.T) {
	e := newEnv(t)
	e.paired(t)
	e.backend.Lock()
	e.backend.OrderStatus = http.StatusConflict
	e.backend.Unlock()

	_, err := e.kiosk.State.AddItem(priced(10, 1))
	require.NoError(t, err)

	_, err = e.kiosk.Ordering.SubmitOrder(context.Background())
	assert.ErrorIs(t, err, ErrStaleSession)
	assert.Equal(t, 1, e.kiosk.State.Cart().Count)
	assert.Empty(t, e.kiosk.Resolver.SessionID())
}

// gatedBackend lets the first order wait for release and answers every
// later order with reject.
type gatedBackend struct {
	Backend
	release chan struct{}
	reject  error

	mu    sync.Mutex
	calls int
}

func (g *gatedBackend) CreateOrder(ctx context.Context, req models.OrderRequest) (json.RawMessage, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	g.mu.Unlock()
	if n > 1 {
		return nil, g.reject
	}
	<-g.release
	return g.Backend.CreateOrder(ctx, req)
}

func (g *gatedBackend) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestStaleSessionDoesNotAbsorbAcceptedSibling(t *testing.T) {
	e := newEnv(t)
	e.paired(t)
	e.kiosk.Resolver.Adopt("321")
	_, err := e.kiosk.State.AddItem(priced(10, 1))
	require.NoError(t, err)

	gated := &gatedBackend{
		Backend: e.kiosk.backend,
		release: make(chan struct{}),
		reject:  &APIError{StatusCode: http.StatusConflict, Message: "session closed"},
	}
	ordering := NewOrderingService(gated, e.kiosk.App, e.kiosk.Resolver, e.kiosk.State)

	type result struct {
		conf *models.OrderConfirmation
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		conf, err := ordering.SubmitOrder(context.Background())
		accepted <- result{conf, err}
	}()
	require.Eventually(t, func() bool { return gated.callCount() == 1 }, time.Second, 2*time.Millisecond)

	_, err = ordering.SubmitOrder(context.Background())
	assert.ErrorIs(t, err, ErrStaleSession)
	assert.Empty(t, e.kiosk.Resolver.SessionID())

	close(gated.release)
	r := <-accepted
	require.NoError(t, r.err)
	assert.False(t, r.conf.Absorbed)
	assert.Equal(t, "321", r.conf.SessionID)
	assert.Zero(t, e.kiosk.State.Cart().Count, "accepted lines leave the cart")
}

func TestSubmitInFlightDuringSessionClosedIsAbsorbed(t *testing.T) {
	e := newEnv(t)
	e.paired(t)
	e.backend.Lock()
	e.backend.OrderDelay = 200 * time.Millisecond
	e.backend.Unlock()

	_, err := e.kiosk.State.AddItem(priced(10, 2))
	require.NoError(t, err)

	type result struct {
		conf *models.OrderConfirmation
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conf, err := e.kiosk.Ordering.SubmitOrder(context.Background())
		done <- result{conf, err}
	}()

	require.Eventually(t, func() bool { return e.kiosk.Resolver.SessionID() != "" }, time.Second, 2*time.Millisecond)
	e.socket.EmitBare("session_closed")
	require.Eventually(t, func() bool { return e.kiosk.State.Cart().Count == 0 }, time.Second, 2*time.Millisecond)

	r := <-done
	require.NoError(t, r.err)
	assert.True(t, r.conf.Absorbed)
	assert.Zero(t, e.kiosk.State.Cart().Count)
	assert.Empty(t, e.kiosk.Resolver.SessionID())
}

func TestSubmitRequiresPairing(t *testing.T) {
	e := newEnv(t)
	_, err := e.kiosk.Ordering.SubmitOrder(context.Background())
	assert.ErrorIs(t, err, ErrNotPaired)
}

func TestRequestBill(t *testing.T) {
	e := newEnv(t)
	e.paired(t)
	require.NoError(t, e.kiosk.State.OpenModal(models.ModalAccount))

	err := e.kiosk.Ordering.RequestBill(context.Background(), "bitcoin")
	assert.Equal(t, utils.MsgBillMethodRequired, userKey(t, err))
	_, _, _, notes := e.backend.Counts()
	assert.Zero(t, notes)

	require.NoError(t, e.kiosk.Ordering.RequestBill(context.Background(), models.PaymentMethodCash))
	e.backend.Lock()
	require.Len(t, e.backend.Notifications, 1)
	assert.Equal(t, models.NotificationRequest{
		TableID:       testsupport.TestTableID,
		RestaurantID:  testsupport.TestRestaurantID,
		Type:          models.NotificationRequestBill,
		PaymentMethod: "cash",
	}, e.backend.Notifications[0])
	e.backend.Unlock()

	snap := e.kiosk.State.Snapshot()
	assert.True(t, snap.WaiterNotified)
	assert.Contains(t, snap.UI.Modals, models.ModalWaiter)
	assert.NotContains(t, snap.UI.Modals, models.ModalAccount)

	// A force_disconnect for this table wipes the acknowledgment with the rest.
	e.socket.Emit("force_disconnect", map[string]string{"tableId": testsupport.TestTableUUID})
	require.Eventually(t, func() bool { return e.kiosk.App.Binding() == nil }, time.Second, 2*time.Millisecond)
	snap = e.kiosk.State.Snapshot()
	assert.False(t, snap.WaiterNotified)
	assert.Empty(t, snap.UI.Modals)
}

func TestCallWaiterFailureLeavesState(t *testing.T) {
	e := newEnv(t)
	e.paired(t)
	e.backend.Lock()
	e.backend.NotificationStatus = http.StatusServiceUnavailable
	e.backend.Unlock()

	err := e.kiosk.Ordering.CallWaiter(context.Background())
	assert.Equal(t, utils.MsgWaiterFailed, userKey(t, err))
	assert.False(t, e.kiosk.State.WaiterNotified())

	e.backend.Lock()
	e.backend.NotificationStatus = 0
	e.backend.Unlock()
	require.NoError(t, e.kiosk.Ordering.CallWaiter(context.Background()))
	assert.True(t, e.kiosk.State.WaiterNotified())
}
