package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/ordengo-kiosk/models"
)

var (
	ErrInvalidView  = errors.New("unknown view")
	ErrInvalidModal = errors.New("unknown modal")
)

// KioskState holds the cart and the navigation state. Lock order is
// KioskState before SessionResolver; the resolver never calls back in here.
type KioskState struct {
	resolver *SessionResolver
	now      func() time.Time

	mu             sync.Mutex
	cart           models.Cart
	ui             models.UIState
	waiterNotified bool
}

// UIView is the JSON shape of the navigation state.
type UIView struct {
	Route         models.Route   `json:"route"`
	View          models.View    `json:"view"`
	CategoryID    string         `json:"categoryId,omitempty"`
	SubcategoryID string         `json:"subcategoryId"`
	Modals        []models.Modal `json:"modals"`
}

type CartView struct {
	Items []models.CartItem `json:"items"`
	Count int               `json:"count"`
	Total float64           `json:"total"`
}

// StateSnapshot is everything the UI shell needs to redraw itself.
type StateSnapshot struct {
	UI             UIView   `json:"ui"`
	Cart           CartView `json:"cart"`
	SessionID      string   `json:"sessionId,omitempty"`
	WaiterNotified bool     `json:"waiterNotified"`
}

func NewKioskState(resolver *SessionResolver) *KioskState {
	return &KioskState{
		resolver: resolver,
		now:      time.Now,
		ui:       models.DefaultUIState(models.RouteSetup),
	}
}

// AddItem appends a line under a freshly generated line id.
func (s *KioskState) AddItem(item models.CartItem) (models.CartItem, error) {
	item.ID = uuid.NewString()
	item.AddedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cart.Add(item); err != nil {
		return models.CartItem{}, err
	}
	return s.cart.Items[len(s.cart.Items)-1], nil
}

func (s *KioskState) RemoveItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Remove(id)
}

func (s *KioskState) SetItemQuantity(id string, quantity int) (models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.SetQuantity(id, quantity)
}

func (s *KioskState) ChangeItemQuantity(id string, delta int) (models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.ChangeQuantity(id, delta)
}

func (s *KioskState) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartView()
}

func (s *KioskState) SetRoute(r models.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.Route = r
}

func (s *KioskState) SetView(v models.View) error {
	if !v.Valid() {
		return ErrInvalidView
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.View = v
	return nil
}

// SetCategory selects a category and resets the subcategory filter.
func (s *KioskState) SetCategory(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.CategoryID = id
	s.ui.SubcategoryID = models.SubcategoryAll
}

func (s *KioskState) SetSubcategory(id string) {
	if id == "" {
		id = models.SubcategoryAll
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.SubcategoryID = id
}

func (s *KioskState) OpenModal(m models.Modal) error {
	return s.setModal(m, true)
}

func (s *KioskState) CloseModal(m models.Modal) error {
	return s.setModal(m, false)
}

func (s *KioskState) setModal(m models.Modal, open bool) error {
	if !m.Valid() {
		return ErrInvalidModal
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.ui.OpenModals[m] = true
	} else {
		delete(s.ui.OpenModals, m)
		if m == models.ModalWaiter {
			s.waiterNotified = false
		}
	}
	return nil
}

// PrepareSubmission returns the lines to submit together with the session
// generation they belong to.
func (s *KioskState) PrepareSubmission() ([]models.CartItem, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot(), s.resolver.Generation()
}

// CompleteSubmission removes the submitted lines and closes the cart. It
// returns false, changing nothing, if a reset happened since gen.
func (s *KioskState) CompleteSubmission(gen uint64, ids []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolver.Generation() != gen {
		return false
	}
	s.cart.RemoveAll(ids)
	delete(s.ui.OpenModals, models.ModalCart)
	return true
}

// AcknowledgeWaiter enters the "waiter notified" state.
func (s *KioskState) AcknowledgeWaiter(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolver.Generation() != gen {
		return false
	}
	s.waiterNotified = true
	delete(s.ui.OpenModals, models.ModalAccount)
	s.ui.OpenModals[models.ModalWaiter] = true
	return true
}

func (s *KioskState) WaiterNotified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiterNotified
}

// Reset empties the cart, forgets the session and puts navigation back to
// its defaults on route. Calling it twice is the same as calling it once,
// apart from the session generation moving on.
func (s *KioskState) Reset(route models.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.ui = models.DefaultUIState(route)
	s.waiterNotified = false
	s.resolver.Clear()
}

func (s *KioskState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{
		UI: UIView{
			Route:         s.ui.Route,
			View:          s.ui.View,
			CategoryID:    s.ui.CategoryID,
			SubcategoryID: s.ui.SubcategoryID,
			Modals:        s.ui.Modals(),
		},
		Cart:           s.cartView(),
		SessionID:      s.resolver.SessionID(),
		WaiterNotified: s.waiterNotified,
	}
}

func (s *KioskState) cartView() CartView {
	return CartView{
		Items: s.cart.Snapshot(),
		Count: s.cart.Len(),
		Total: s.cart.Total(),
	}
}

func (s *KioskState) Route() models.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui.Route
}
