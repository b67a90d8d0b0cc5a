package aggregation

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ExtractDecimal reads a numeric value from an event payload.
// field may be a dotted path into nested objects ("trip.distance_km").
// ok is false when the field is missing or not numeric; JSON numbers arrive
// as float64, numeric strings are parsed exactly.
func ExtractDecimal(data map[string]interface{}, field string) (decimal.Decimal, bool) {
	if field == "" {
		return decimal.Zero, false
	}

	var v interface{} = data
	for _, part := range strings.Split(field, ".") {
		obj, isObj := v.(map[string]interface{})
		if !isObj {
			return decimal.Zero, false
		}
		if v, isObj = obj[part]; !isObj {
			return decimal.Zero, false
		}
	}

	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), true
	case float32:
		return decimal.NewFromFloat32(val), true
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt(int64(val)), true
	case string:
		d, err := decimal.NewFromString(val)
		if err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}
