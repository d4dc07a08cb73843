package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneWhatsApp(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"no digits", "abc", ""},
		{"already international", "5491155551234", "5491155551234"},
		{"formatted international", "+54 9 11 5555-1234", "5491155551234"},
		{"local ten digits", "1155551234", "5491155551234"},
		{"trunk zero", "01155551234", "5491155551234"},
		{"trunk zero international", "05491155551234", "5491155551234"},
		{"short number", "55551234", "5455551234"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizePhoneWhatsApp(tc.in))
		})
	}
}

func TestVehicleLabel(t *testing.T) {
	c := &Credit{VehicleModel: "Corolla", VehicleVersion: "XEI", VehicleYear: 2020}
	assert.Equal(t, "Corolla XEI 2020", c.VehicleLabel())

	c = &Credit{VehicleModel: "Corolla"}
	assert.Equal(t, "Corolla", c.VehicleLabel())

	c = &Credit{VehicleYear: 2020}
	assert.Equal(t, "2020", c.VehicleLabel())

	assert.Empty(t, (&Credit{}).VehicleLabel())

	var nilCredit *Credit
	assert.Empty(t, nilCredit.VehicleLabel())
}

func TestBuildReminderMessage(t *testing.T) {
	c := &Credit{
		Status:           CreditActive,
		ClientName:       "Juan",
		ClientPhone:      "11 5555-1234",
		VehicleModel:     "Hilux",
		VehicleYear:      2019,
		InstallmentAmt:   150000,
		InstallmentCount: 6,
		StartDate:        time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
	}
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	s := c.Schedule(now)
	require.NotNil(t, s)

	msg := BuildReminderMessage(c, s)
	assert.Contains(t, msg, "Hola Juan!")
	assert.Contains(t, msg, "Hilux 2019")
	assert.Contains(t, msg, "$150000")
	assert.Contains(t, msg, "10/03/2024 (día 10)")
	assert.Contains(t, msg, "5 cuotas restantes")
	assert.Contains(t, msg, "Finaliza aprox: 07/2024")
}

func TestBuildReminderMessageSingularRemaining(t *testing.T) {
	s := &CreditSchedule{
		NextDue:   time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC),
		LastDue:   time.Date(2024, time.July, 10, 0, 0, 0, 0, time.UTC),
		Remaining: 1,
	}
	msg := BuildReminderMessage(&Credit{ClientName: "Ana"}, s)
	assert.Contains(t, msg, "1 cuota restante")
	assert.Contains(t, msg, "Te escribo para recordarte tu crédito.")
}

func TestBuildReminderMessageNilInputs(t *testing.T) {
	assert.Empty(t, BuildReminderMessage(nil, &CreditSchedule{}))
	assert.Empty(t, BuildReminderMessage(&Credit{}, nil))
}

func TestFormatDueDate(t *testing.T) {
	assert.Equal(t, "—", FormatDueDate(time.Time{}))
	assert.Equal(t, "10/03/2024", FormatDueDate(time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)))
}
