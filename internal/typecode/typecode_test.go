package typecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Deluxe Room", "D"},
		{"King Bed Suite", "KBS"},
		{"room", ""},
		{"ROOM Room rOOm", ""},
		{"", ""},
		{"   ", ""},
		{"twin  share\tbathroom", "TSB"},
		{"Roomy Loft", "RL"},
		{"élan suite", "ÉS"},
		{"Standard Room 2", "S2"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Derive(tc.name), "name=%q", tc.name)
	}
}

func TestDeriveIsStable(t *testing.T) {
	first := Derive("Executive Corner Room")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Derive("Executive Corner Room"))
	}
	assert.Equal(t, "EC", first)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("KBS"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("."))
	assert.False(t, Valid(".."))
	assert.False(t, Valid("A/B"))
	assert.False(t, Valid(`A\B`))
}
