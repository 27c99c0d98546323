package invoicing

import (
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type generateRequest struct {
	TransactionIDs []string `json:"transaction_ids" validate:"required,min=1,max=500"`
	InvoiceDate    string   `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	Notes          string   `json:"notes" validate:"max=1000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type amountsResponse struct {
	Net          string `json:"net"`
	CGST         string `json:"cgst"`
	SGST         string `json:"sgst"`
	IGST         string `json:"igst"`
	Total        string `json:"total"`
	TotalDisplay string `json:"total_display"`
}

func toAmounts(a Amounts) amountsResponse {
	return amountsResponse{
		Net:          a.Net().StringFixed(2),
		CGST:         a.CGST().StringFixed(2),
		SGST:         a.SGST().StringFixed(2),
		IGST:         a.IGST().StringFixed(2),
		Total:        a.Total().StringFixed(2),
		TotalDisplay: FormatINR(a.Total()),
	}
}

type rangeResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func toRange(r DateRange) rangeResponse {
	return rangeResponse{From: r.From.Format(dateLayout), To: r.To.Format(dateLayout)}
}

type lineResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	VoucherNo     int64     `json:"voucher_no"`
	ChallanNo     string    `json:"challan_no"`
	Date          string    `json:"date"`
	LorryNumber   string    `json:"lorry_number,omitempty"`
	Quantity      string    `json:"quantity"`
	Rate          string    `json:"rate"`
	Amount        string    `json:"amount"`
}

type invoiceResponse struct {
	ID             uuid.UUID       `json:"id"`
	Number         int64           `json:"invoice_no"`
	Date           string          `json:"invoice_date"`
	Range          rangeResponse   `json:"range"`
	Status         Status          `json:"status"`
	Buyer          BuyerRef        `json:"buyer"`
	Site           SiteRef         `json:"site"`
	Item           ItemRef         `json:"item"`
	TransactionIDs []uuid.UUID     `json:"transaction_ids"`
	Lines          []lineResponse  `json:"lines"`
	Notes          string          `json:"notes,omitempty"`
	Amounts        amountsResponse `json:"amounts"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toDetailResponse(d Detail) invoiceResponse {
	lines := make([]lineResponse, len(d.Lines))
	for i, ln := range d.Lines {
		lines[i] = lineResponse{
			TransactionID: ln.TransactionID,
			VoucherNo:     ln.VoucherNo,
			ChallanNo:     ln.ChallanNo,
			Date:          ln.Date.Format(dateLayout),
			LorryNumber:   ln.LorryNumber,
			Quantity:      ln.Quantity.String(),
			Rate:          ln.Rate.StringFixed(2),
			Amount:        ln.Amount.StringFixed(2),
		}
	}
	ids := d.TransactionIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return invoiceResponse{
		ID:             d.ID,
		Number:         d.Number,
		Date:           d.Date.Format(dateLayout),
		Range:          toRange(d.Range),
		Status:         d.Status,
		Buyer:          d.Buyer,
		Site:           d.Site,
		Item:           d.Item,
		TransactionIDs: ids,
		Lines:          lines,
		Notes:          d.Notes,
		Amounts:        toAmounts(d.Amounts),
		CancelReason:   d.CancelReason,
		CancelledAt:    d.CancelledAt,
		CreatedAt:      d.CreatedAt,
	}
}

type summaryResponse struct {
	ID               uuid.UUID       `json:"id"`
	Number           int64           `json:"invoice_no"`
	Date             string          `json:"invoice_date"`
	Range            rangeResponse   `json:"range"`
	Status           Status          `json:"status"`
	BuyerName        string          `json:"buyer_name"`
	SiteName         string          `json:"site_name"`
	ItemName         string          `json:"item_name"`
	Amounts          amountsResponse `json:"amounts"`
	TransactionCount int             `json:"transaction_count"`
}

type listResponse struct {
	Items      []summaryResponse `json:"items"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
}

func toListResponse(p Page) listResponse {
	resp := listResponse{
		Items:      make([]summaryResponse, 0, len(p.Items)),
		Page:       p.Pagination.Page,
		PerPage:    p.Pagination.PerPage,
		Total:      p.Pagination.Total,
		TotalPages: p.Pagination.TotalPages,
	}
	for _, s := range p.Items {
		resp.Items = append(resp.Items, summaryResponse{
			ID:               s.ID,
			Number:           s.Number,
			Date:             s.Date.Format(dateLayout),
			Range:            toRange(s.Range),
			Status:           s.Status,
			BuyerName:        s.BuyerName,
			SiteName:         s.SiteName,
			ItemName:         s.ItemName,
			Amounts:          toAmounts(s.Amounts),
			TransactionCount: s.TransactionCount,
		})
	}
	return resp
}

type cancelResponse struct {
	ID          uuid.UUID `json:"id"`
	Number      int64     `json:"invoice_no"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
	Released    int       `json:"released_transactions"`
}
