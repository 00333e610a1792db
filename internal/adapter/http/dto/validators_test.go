package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

func TestValidEventName(t *testing.T) {
	valid := []string{"user.created", "invoice.payment_failed", "order-v2.shipped", "ping", "a.b.c"}
	for _, name := range valid {
		assert.True(t, ValidEventName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", ".user", "user.", "user..created", "user created", "user/created", "<script>", "user.*"}
	for _, name := range invalid {
		assert.False(t, ValidEventName(name), "expected %q to be invalid", name)
	}
}

func TestTriggerEventRequest_Binding(t *testing.T) {
	tests := []struct {
		name    string
		req     TriggerEventRequest
		wantErr bool
	}{
		{"valid", TriggerEventRequest{Event: "user.created"}, false},
		{"missing event", TriggerEventRequest{}, true},
		{"bad event name", TriggerEventRequest{Event: "user created"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
