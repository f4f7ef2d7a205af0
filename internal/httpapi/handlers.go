package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/cartd/internal/cart"
	"github.com/wyfcoding/cartd/internal/database"
	"github.com/wyfcoding/cartd/internal/decision"
	"github.com/wyfcoding/cartd/internal/logging"
)

type handlers struct {
	mk     *decision.Maker
	db     *database.DB
	logger *logging.Logger
}

func registerRoutes(engine *gin.Engine, h *handlers) {
	carts := engine.Group("/carts/:cartID")
	carts.POST("/items", h.addItem)
	carts.DELETE("/items/:itemID", h.removeItem)
	carts.POST("/clear", h.clearCart)
	carts.POST("/submit", h.submitCart)
	carts.GET("/items", h.listItems)
}

type addItemRequest struct {
	ItemID      string          `json:"item_id" binding:"required"`
	ProductID   string          `json:"product_id" binding:"required"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
	Fingerprint string          `json:"fingerprint"`
}

func (h *handlers) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := decision.Make(c.Request.Context(), h.mk, "add_item", cart.AddItemCommand{
		CartID:      c.Param("cartID"),
		ItemID:      req.ItemID,
		ProductID:   req.ProductID,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
		Fingerprint: req.Fingerprint,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": len(events)})
}

func (h *handlers) removeItem(c *gin.Context) {
	_, err := decision.Make(c.Request.Context(), h.mk, "remove_item", cart.RemoveItemCommand{
		CartID: c.Param("cartID"),
		ItemID: c.Param("itemID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) clearCart(c *gin.Context) {
	_, err := decision.Make(c.Request.Context(), h.mk, "clear_cart", cart.ClearCartCommand{
		CartID: c.Param("cartID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) submitCart(c *gin.Context) {
	_, err := decision.Make(c.Request.Context(), h.mk, "submit_cart", cart.SubmitCartCommand{
		CartID: c.Param("cartID"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// cartItemRow mirrors internal/listener's unexported cart_items row
// shape for read-only access from this package.
type cartItemRow struct {
	ItemID      string `gorm:"column:item_id" json:"item_id"`
	ProductID   string `gorm:"column:product_id" json:"product_id"`
	Description string `gorm:"column:description" json:"description"`
	Image       string `gorm:"column:image" json:"image"`
	Price       string `gorm:"column:price" json:"price"`
	Fingerprint string `gorm:"column:fingerprint" json:"fingerprint"`
}

func (cartItemRow) TableName() string { return "cart_items" }

func (h *handlers) listItems(c *gin.Context) {
	var rows []cartItemRow
	err := h.db.WithContext(c.Request.Context()).
		Where("cart_id = ?", c.Param("cartID")).
		Find(&rows).Error
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}
