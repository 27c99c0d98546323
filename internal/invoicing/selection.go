package invoicing

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/lorrybill/lorrybill/internal/transactions"
)

// Group is a validated, date ordered set of transactions sharing buyer, site and item.
type Group struct {
	Transactions []transactions.Transaction
	BuyerID      uuid.UUID
	SiteID       uuid.UUID
	ItemID       uuid.UUID
	Range        DateRange
}

// IDs returns the transaction ids in group order.
func (g Group) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(g.Transactions))
	for i, t := range g.Transactions {
		ids[i] = t.ID
	}
	return ids
}

// ParseTransactionIDs parses raw ids. Empty lists, malformed ids and
// duplicates are rejected.
func ParseTransactionIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, invalidInput("transaction ids required")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, invalidInput("malformed transaction id %q", s)
		}
		ids = append(ids, id)
	}
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func checkIDs(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return invalidInput("transaction ids required")
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return invalidInput("nil transaction id")
		}
		if _, dup := seen[id]; dup {
			return invalidInput("duplicate transaction id %s", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// selectGroup checks that loaded covers every requested id and that all
// transactions agree with the earliest one on buyer, site and item.
func selectGroup(requested []uuid.UUID, loaded []transactions.Transaction) (Group, error) {
	byID := make(map[uuid.UUID]transactions.Transaction, len(loaded))
	for _, t := range loaded {
		byID[t.ID] = t
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 || len(byID) != len(requested) {
		return Group{}, &StaleReferenceError{IDs: missing}
	}

	ordered := make([]transactions.Transaction, 0, len(requested))
	for _, id := range requested {
		ordered = append(ordered, byID[id])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].VoucherNo < ordered[j].VoucherNo
	})

	first := ordered[0]
	for _, t := range ordered[1:] {
		switch {
		case t.BuyerID != first.BuyerID:
			return Group{}, &MixedGroupError{TransactionID: t.ID, Field: "buyer"}
		case t.SiteID != first.SiteID:
			return Group{}, &MixedGroupError{TransactionID: t.ID, Field: "site"}
		case t.ItemID != first.ItemID:
			return Group{}, &MixedGroupError{TransactionID: t.ID, Field: "item"}
		}
	}

	return Group{
		Transactions: ordered,
		BuyerID:      first.BuyerID,
		SiteID:       first.SiteID,
		ItemID:       first.ItemID,
		Range:        DateRange{From: ordered[0].Date, To: ordered[len(ordered)-1].Date},
	}, nil
}

// recheckGroup validates the rows locked inside the atomic unit against the
// group checked before it opened. The group may still be repriced or
// re-dated, but its buyer, site and item must be the ones already resolved.
func recheckGroup(checked Group, requested []uuid.UUID, locked []transactions.Transaction) (Group, error) {
	g, err := selectGroup(requested, locked)
	if err != nil {
		return Group{}, err
	}
	first := g.Transactions[0].ID
	switch {
	case g.BuyerID != checked.BuyerID:
		return Group{}, &MixedGroupError{TransactionID: first, Field: "buyer"}
	case g.SiteID != checked.SiteID:
		return Group{}, &MixedGroupError{TransactionID: first, Field: "site"}
	case g.ItemID != checked.ItemID:
		return Group{}, &MixedGroupError{TransactionID: first, Field: "item"}
	}
	return g, nil
}
