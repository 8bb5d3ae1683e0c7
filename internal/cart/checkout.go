package cart

import "strings"

// ShippingDetails is the delivery address collected at checkout.
type ShippingDetails struct {
	Name    string
	Email   string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
}

// Validate checks the required fields before anything is sent anywhere.
// It returns a user-facing message listing the missing fields, or ""
// when the details are complete.
func (d ShippingDetails) Validate() string {
	required := []struct {
		label string
		value string
	}{
		{"name", d.Name},
		{"email", d.Email},
		{"phone", d.Phone},
		{"address", d.Address},
		{"city", d.City},
		{"state", d.State},
		{"pincode", d.Pincode},
	}

	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.label)
		}
	}
	if len(missing) == 0 {
		return ""
	}
	return "Please fill in all required fields: " + strings.Join(missing, ", ")
}
