package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

type CartController struct {
	State    *services.KioskState
	Currency func() string
}

func NewCartController(state *services.KioskState, currency func() string) *CartController {
	return &CartController{State: state, Currency: currency}
}

// cartResponse adds the display total in the restaurant currency.
type cartResponse struct {
	services.CartView
	TotalLabel string `json:"totalLabel"`
}

func (cc *CartController) cart() cartResponse {
	view := cc.State.Cart()
	code := ""
	if cc.Currency != nil {
		code = cc.Currency()
	}
	return cartResponse{CartView: view, TotalLabel: utils.FormatCurrency(view.Total, code)}
}

func (cc *CartController) GetCart(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Cart", cc.cart())
}

// AddItem -> POST /cart/items. The line id is always assigned here.
func (cc *CartController) AddItem(c *gin.Context) {
	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	added, err := cc.State.AddItem(item)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Item added", gin.H{
		"item": added,
		"cart": cc.cart(),
	})
}

// UpdateItem takes either a relative {delta} or an absolute {quantity}.
func (cc *CartController) UpdateItem(c *gin.Context) {
	var body struct {
		Delta    *int `json:"delta"`
		Quantity *int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if (body.Delta == nil) == (body.Quantity == nil) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("exactly one of delta or quantity is required"))
		return
	}

	id := c.Param("item_id")
	var (
		item models.CartItem
		err  error
	)
	if body.Delta != nil {
		item, err = cc.State.ChangeItemQuantity(id, *body.Delta)
	} else {
		item, err = cc.State.SetItemQuantity(id, *body.Quantity)
	}
	if err != nil {
		utils.RespondError(c, cartErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item updated", gin.H{
		"item": item,
		"cart": cc.cart(),
	})
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	if err := cc.State.RemoveItem(c.Param("item_id")); err != nil {
		utils.RespondError(c, cartErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed", cc.cart())
}

func cartErrorStatus(err error) int {
	if errors.Is(err, models.ErrItemNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}
