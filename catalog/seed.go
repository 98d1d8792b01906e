package catalog

import "github.com/aluiziolira/go-price-analyzer/models"

// SeedProducts returns a small demo catalog for trying the analyzer
// without an import file.
func SeedProducts() []*models.Product {
	return []*models.Product{
		{
			ID:            models.NewProductID(),
			Name:          "iPhone 15 Pro 128GB",
			Description:   "Apple smartphone, titanium body",
			Quantity:      5,
			PurchasePrice: 85000,
			SalePrice:     99990,
		},
		{
			ID:            models.NewProductID(),
			Name:          "Samsung Galaxy S24 Ultra",
			Description:   "Android flagship with stylus",
			Quantity:      3,
			PurchasePrice: 95000,
			SalePrice:     119990,
		},
		{
			ID:            models.NewProductID(),
			Name:          "MacBook Air M2",
			Description:   "13-inch laptop, 8GB RAM, 256GB SSD",
			Quantity:      2,
			PurchasePrice: 105000,
			SalePrice:     129990,
		},
		{
			ID:            models.NewProductID(),
			Name:          "AirPods Pro 2",
			Description:   "Wireless earbuds with noise cancellation",
			Quantity:      10,
			PurchasePrice: 18000,
			SalePrice:     24990,
		},
	}
}
