package services

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mediaudit/backend/internal/domain/entities"
	apperrors "github.com/mediaudit/backend/pkg/errors"
)

// amountTolerance absorbs rounding noise when comparing stated totals against
// quantity times unit cost.
const amountTolerance = 0.01

// BillNormalizerService turns the vision model's raw JSON guess into a
// canonical BillRecord. The input is untrusted: field names drift, numbers
// arrive as currency strings, quantities go missing. The normalizer coerces
// what it can and reports what it dropped as warnings.
type BillNormalizerService struct{}

// NewBillNormalizerService creates a new bill normalizer.
func NewBillNormalizerService() *BillNormalizerService {
	return &BillNormalizerService{}
}

var currencyNoise = regexp.MustCompile(`(?i)[₹$€£,]|rs\.?|inr|usd|eur`)

// headerAliases maps canonical header fields to the spellings seen in model
// output.
var headerAliases = map[string][]string{
	"patient_name":  {"patient_name", "patient", "name"},
	"provider_name": {"provider_name", "provider", "hospital_name", "hospital", "clinic"},
	"bill_date":     {"bill_date", "date", "invoice_date"},
	"bill_id":       {"bill_id", "bill_no", "bill_number", "invoice_id", "invoice_no", "invoice_number"},
}

var itemAliases = map[string][]string{
	"description": {"description", "item", "name", "service", "treatment", "particulars"},
	"quantity":    {"quantity", "qty", "units", "count"},
	"unit_cost":   {"unit_cost", "unit_price", "rate", "price_per_unit", "cost_per_unit"},
	"total_cost":  {"total_cost", "total", "amount", "cost", "price", "line_total"},
	"category":    {"category", "type", "section", "group"},
}

var lineItemsAliases = []string{"line_items", "items", "charges", "line_item", "services"}

// Normalize coerces raw extraction JSON into a BillRecord. It returns a
// validation error only when the payload is not a JSON object at all; a bill
// with zero usable line items is a valid (empty) record, reported through
// warnings so the audit can still run and say so.
func (s *BillNormalizerService) Normalize(raw json.RawMessage) (*entities.BillRecord, []string, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, apperrors.NewValidationError("extraction payload is not a JSON object")
	}

	var warnings []string
	bill := &entities.BillRecord{
		PatientName:  lookupString(doc, headerAliases["patient_name"]),
		ProviderName: lookupString(doc, headerAliases["provider_name"]),
		BillDate:     lookupString(doc, headerAliases["bill_date"]),
		BillID:       lookupString(doc, headerAliases["bill_id"]),
		LineItems:    []entities.BillLineItem{},
	}

	rawItems := lookupSlice(doc, lineItemsAliases)
	for i, rawItem := range rawItems {
		obj, ok := rawItem.(map[string]interface{})
		if !ok {
			warnings = append(warnings, fmt.Sprintf("line item %d is not an object; dropped", i+1))
			continue
		}

		item, itemWarnings := s.normalizeItem(obj, i)
		warnings = append(warnings, itemWarnings...)
		if item != nil {
			bill.LineItems = append(bill.LineItems, *item)
		}
	}

	if len(bill.LineItems) == 0 {
		warnings = append(warnings, "no usable line items were extracted from the bill")
	}

	return bill, warnings, nil
}

// normalizeItem coerces one raw line item. A nil return means the item was
// dropped; the warnings say why.
func (s *BillNormalizerService) normalizeItem(obj map[string]interface{}, index int) (*entities.BillLineItem, []string) {
	var warnings []string

	description := strings.TrimSpace(lookupString(obj, itemAliases["description"]))
	if description == "" {
		return nil, []string{fmt.Sprintf("line item %d has no description; dropped", index+1)}
	}

	quantity, hasQuantity := lookupNumber(obj, itemAliases["quantity"])
	if !hasQuantity || quantity <= 0 {
		quantity = 1
	}

	unitCost, hasUnit := lookupNumber(obj, itemAliases["unit_cost"])
	totalCost, hasTotal := lookupNumber(obj, itemAliases["total_cost"])

	item := &entities.BillLineItem{
		Description: description,
		Quantity:    quantity,
		Category:    strings.TrimSpace(lookupString(obj, itemAliases["category"])),
	}

	switch {
	case hasTotal:
		// The stated total is authoritative.
		item.TotalCost = totalCost
		if hasUnit {
			item.UnitCost = unitCost
			if math.Abs(unitCost*quantity-totalCost) > amountTolerance {
				item.AmountMismatch = true
				warnings = append(warnings, fmt.Sprintf(
					"%q: stated total %.2f disagrees with %.2f x %.0f; using the stated total",
					description, totalCost, unitCost, quantity))
			}
		} else if quantity > 0 {
			item.UnitCost = totalCost / quantity
		}
	case hasUnit:
		item.UnitCost = unitCost
		item.TotalCost = unitCost * quantity
	default:
		warnings = append(warnings, fmt.Sprintf("%q has no readable amount; treated as zero", description))
	}

	if item.TotalCost < 0 {
		warnings = append(warnings, fmt.Sprintf("%q has a negative amount %.2f; treated as zero", description, item.TotalCost))
		item.TotalCost = 0
		item.UnitCost = 0
	}

	return item, warnings
}

func lookupString(obj map[string]interface{}, keys []string) string {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			switch typed := v.(type) {
			case string:
				if strings.TrimSpace(typed) != "" {
					return typed
				}
			case float64:
				return strconv.FormatFloat(typed, 'f', -1, 64)
			}
		}
	}
	return ""
}

func lookupSlice(obj map[string]interface{}, keys []string) []interface{} {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			if slice, ok := v.([]interface{}); ok {
				return slice
			}
		}
	}
	return nil
}

// lookupNumber resolves the first alias that carries a usable number, parsing
// currency strings like "Rs. 1,200.50" along the way.
func lookupNumber(obj map[string]interface{}, keys []string) (float64, bool) {
	for _, key := range keys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch typed := v.(type) {
		case float64:
			return typed, true
		case string:
			if parsed, ok := parseAmount(typed); ok {
				return parsed, true
			}
		}
	}
	return 0, false
}

func parseAmount(s string) (float64, bool) {
	cleaned := strings.TrimSpace(currencyNoise.ReplaceAllString(s, ""))
	if cleaned == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
