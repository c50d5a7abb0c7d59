package entities

// BillRecord is the canonical extracted medical bill. All header fields are
// optional; not every bill has every field legible. LineItems preserves the
// extraction order for stable display and report output.
type BillRecord struct {
	PatientName  string         `json:"patient_name,omitempty"`
	ProviderName string         `json:"provider_name,omitempty"`
	BillDate     string         `json:"bill_date,omitempty"`
	BillID       string         `json:"bill_id,omitempty"`
	LineItems    []BillLineItem `json:"line_items"`
}

// BillLineItem is one billed charge entry. Description is raw free text from
// the bill; Category is a hint only when the source bill already labels it.
type BillLineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitCost    float64 `json:"unit_cost"`
	TotalCost   float64 `json:"total_cost"`
	Category    string  `json:"category,omitempty"`

	// AmountMismatch is set when the bill stated both a unit and a total cost
	// and they disagree; the stated total is authoritative.
	AmountMismatch bool `json:"amount_mismatch,omitempty"`
}

// TotalBilled sums the total cost of all line items.
func (b *BillRecord) TotalBilled() float64 {
	var total float64
	for _, item := range b.LineItems {
		total += item.TotalCost
	}
	return total
}
