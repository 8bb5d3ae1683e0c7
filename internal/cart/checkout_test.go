package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func completeDetails() ShippingDetails {
	return ShippingDetails{
		Name:    "Maya Iyer",
		Email:   "maya@example.com",
		Phone:   "9876543210",
		Address: "12 MG Road",
		City:    "Bengaluru",
		State:   "Karnataka",
		Pincode: "560001",
	}
}

func TestShippingDetailsComplete(t *testing.T) {
	assert.Empty(t, completeDetails().Validate())
}

func TestShippingDetailsMissingFields(t *testing.T) {
	d := completeDetails()
	d.Phone = ""
	d.City = "   "

	assert.Equal(t, "Please fill in all required fields: phone, city", d.Validate())
}

func TestShippingDetailsAllMissing(t *testing.T) {
	msg := ShippingDetails{}.Validate()
	assert.Equal(t, "Please fill in all required fields: name, email, phone, address, city, state, pincode", msg)
}
