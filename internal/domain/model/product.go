package model

import "github.com/shopspring/decimal"

// Product is the read-only catalog entry a line item refers to.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	FileFormat  string          `json:"file_format"`
	DownloadURL string          `json:"download_url"`
	Active      bool            `json:"active"`
}
