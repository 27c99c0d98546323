package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type transactionRequest struct {
	ChallanNo    string          `json:"challan_no" validate:"required,max=40"`
	Date         string          `json:"date" validate:"required,datetime=2006-01-02"`
	LorryID      string          `json:"lorry_id" validate:"required,uuid"`
	BuyerID      string          `json:"buyer_id" validate:"required,uuid"`
	SiteID       string          `json:"site_id" validate:"required,uuid"`
	ItemID       string          `json:"item_id" validate:"required,uuid"`
	PurchaseRate decimal.Decimal `json:"purchase_rate"`
	SaleRate     decimal.Decimal `json:"sale_rate"`
	Quantity     decimal.Decimal `json:"quantity"`
	Remarks      string          `json:"remarks" validate:"max=500"`
}

// toInput assumes the request passed struct validation.
func (r transactionRequest) toInput() Input {
	date, _ := time.Parse(dateLayout, r.Date)
	return Input{
		ChallanNo:    r.ChallanNo,
		Date:         date,
		LorryID:      uuid.MustParse(r.LorryID),
		BuyerID:      uuid.MustParse(r.BuyerID),
		SiteID:       uuid.MustParse(r.SiteID),
		ItemID:       uuid.MustParse(r.ItemID),
		PurchaseRate: r.PurchaseRate,
		SaleRate:     r.SaleRate,
		Quantity:     r.Quantity,
		Remarks:      r.Remarks,
	}
}

type transactionResponse struct {
	ID           uuid.UUID  `json:"id"`
	VoucherNo    int64      `json:"voucher_no"`
	ChallanNo    string     `json:"challan_no"`
	Date         string     `json:"date"`
	LorryID      uuid.UUID  `json:"lorry_id"`
	LorryNumber  string     `json:"lorry_number,omitempty"`
	BuyerID      uuid.UUID  `json:"buyer_id"`
	SiteID       uuid.UUID  `json:"site_id"`
	ItemID       uuid.UUID  `json:"item_id"`
	PurchaseRate string     `json:"purchase_rate"`
	SaleRate     string     `json:"sale_rate"`
	Quantity     string     `json:"quantity"`
	LineAmount   string     `json:"line_amount"`
	Remarks      string     `json:"remarks,omitempty"`
	Invoiced     bool       `json:"invoiced"`
	InvoiceID    *uuid.UUID `json:"invoice_id,omitempty"`
}

func toResponse(t Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		VoucherNo:    t.VoucherNo,
		ChallanNo:    t.ChallanNo,
		Date:         t.Date.Format(dateLayout),
		LorryID:      t.LorryID,
		LorryNumber:  t.LorryNumber,
		BuyerID:      t.BuyerID,
		SiteID:       t.SiteID,
		ItemID:       t.ItemID,
		PurchaseRate: t.PurchaseRate.StringFixed(2),
		SaleRate:     t.SaleRate.StringFixed(2),
		Quantity:     t.Quantity.String(),
		LineAmount:   t.LineAmount().StringFixed(2),
		Remarks:      t.Remarks,
		Invoiced:     t.Invoiced,
		InvoiceID:    t.InvoiceID,
	}
}

type listResponse struct {
	Items      []transactionResponse `json:"items"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"per_page"`
	Total      int                   `json:"total"`
	TotalPages int                   `json:"total_pages"`
}
