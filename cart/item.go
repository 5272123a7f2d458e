package cart

import (
	"github.com/shopspring/decimal"

	"go-storefront/models"
	"go-storefront/utils"
)

// Source tells which catalog listing an entry was picked from.
type Source string

const (
	SourceProduct    Source = "product"
	SourceFeatured   Source = "featured"
	SourceNewArrival Source = "newArrival"
)

// CatalogEntry is whatever the shopper clicked on. ID and ProductID keep
// the shape they were received in.
type CatalogEntry struct {
	ID        any
	ProductID any
	Name      string
	Price     float64
	Image     string
	Source    Source
}

// Item is a cart line. ActualProductID is the backing product of a
// featured item.
type Item struct {
	ID              string  `json:"_id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	Image           string  `json:"image,omitempty"`
	Quantity        int     `json:"quantity"`
	IsFeatured      bool    `json:"isFeatured"`
	IsNewArrival    bool    `json:"isNewArrival"`
	ActualProductID string  `json:"actualProductId,omitempty"`
}

// NewItem tags entry with its provenance. Ids are normalised here so
// nothing downstream sees an object-shaped id.
func NewItem(entry CatalogEntry, quantity int) (Item, error) {
	id, err := utils.NormalizeID(entry.ID)
	if err != nil {
		return Item{}, utils.NewValidationError("Invalid product data")
	}
	if quantity < 1 {
		return Item{}, utils.NewValidationError("Quantity must be at least 1")
	}

	item := Item{
		ID:           id,
		Name:         entry.Name,
		Price:        entry.Price,
		Image:        entry.Image,
		Quantity:     quantity,
		IsFeatured:   entry.Source == SourceFeatured || entry.ProductID != nil,
		IsNewArrival: entry.Source == SourceNewArrival,
	}
	if entry.ProductID != nil {
		actual, err := utils.NormalizeID(entry.ProductID)
		if err != nil {
			return Item{}, utils.NewValidationError("Invalid product data")
		}
		item.ActualProductID = actual
	}
	return item, nil
}

// Subtotal is price times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderItem converts the line into its checkout shape.
func (i Item) OrderItem() models.CreateOrderItem {
	line := models.CreateOrderItem{
		Product:     i.ID,
		ProductType: string(models.ProductTypeProduct),
		Quantity:    i.Quantity,
		Price:       i.Price,
		Name:        i.Name,
	}
	switch {
	case i.IsFeatured:
		line.ProductType = string(models.ProductTypeFeatured)
		if i.ActualProductID != "" {
			line.ProductID = i.ActualProductID
		}
	case i.IsNewArrival:
		line.ProductType = string(models.ProductTypeNew)
	}
	return line
}
