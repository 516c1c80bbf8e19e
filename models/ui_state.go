package models

import "sort"

// Route is the top-level screen the UI shell should show.
type Route string

const (
	RouteSetup    Route = "/setup"
	RouteLanguage Route = "/"
	RouteMenu     Route = "/cardapio"
)

// View is the active section inside the menu screen.
type View string

const (
	ViewHighlights View = "highlights"
	ViewMenu       View = "menu"
	ViewOffers     View = "offers"
)

func (v View) Valid() bool {
	return v == ViewHighlights || v == ViewMenu || v == ViewOffers
}

// SubcategoryAll selects every subcategory of the active category.
const SubcategoryAll = "all"

type Modal string

const (
	ModalCart           Modal = "cart"
	ModalAccount        Modal = "account"
	ModalReview         Modal = "review"
	ModalAbout          Modal = "about"
	ModalBrand          Modal = "brand"
	ModalWaiter         Modal = "waiter"
	ModalProductDetail  Modal = "productDetail"
	ModalProductOptions Modal = "productOptions"
	ModalAdmin          Modal = "admin"
)

var knownModals = map[Modal]struct{}{
	ModalCart: {}, ModalAccount: {}, ModalReview: {}, ModalAbout: {}, ModalBrand: {},
	ModalWaiter: {}, ModalProductDetail: {}, ModalProductOptions: {}, ModalAdmin: {},
}

func (m Modal) Valid() bool {
	_, ok := knownModals[m]
	return ok
}

// UIState is the navigation state of the kiosk. It is never persisted.
type UIState struct {
	Route         Route          `json:"route"`
	View          View           `json:"view"`
	CategoryID    string         `json:"categoryId,omitempty"`
	SubcategoryID string         `json:"subcategoryId"`
	OpenModals    map[Modal]bool `json:"-"`
}

// DefaultUIState is the state right after boot or after a reset.
func DefaultUIState(route Route) UIState {
	return UIState{
		Route:         route,
		View:          ViewHighlights,
		SubcategoryID: SubcategoryAll,
		OpenModals:    map[Modal]bool{},
	}
}

// Modals lists open modals in a stable order.
func (s UIState) Modals() []Modal {
	out := make([]Modal, 0, len(s.OpenModals))
	for m, open := range s.OpenModals {
		if open {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
