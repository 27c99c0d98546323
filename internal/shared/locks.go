package shared

// Advisory lock namespaces. Each is combined with an owner id so writers of
// different owners never contend.
const (
	LockInvoiceNumbering = "invoice:numbering"
	LockVoucherNumbering = "transaction:voucher"
)
