package event

import (
	"testing"

	"github.com/louisbranch/broadside/internal/battleship/domain"
)

func TestSignalConstructors(t *testing.T) {
	field := domain.Coord{Row: 2, Col: 7}
	cases := []struct {
		signal   Signal
		wantType string
		wantKey  string
	}{
		{ShipSank(field), TypeShipSank, "sank"},
		{ShipMissed(field), TypeShipMissed, "missed"},
		{GameWon(field), TypeGameWon, "sank"},
	}
	for _, tc := range cases {
		if tc.signal.Type != tc.wantType {
			t.Fatalf("expected type %s, got %s", tc.wantType, tc.signal.Type)
		}
		if tc.signal.Field != field {
			t.Fatalf("%s: expected field %v, got %v", tc.wantType, field, tc.signal.Field)
		}
		if got := tc.signal.FieldKey(); got != tc.wantKey {
			t.Fatalf("%s: expected field key %s, got %s", tc.wantType, tc.wantKey, got)
		}
	}
}

func TestGameWonForfeitCarriesSentinel(t *testing.T) {
	signal := GameWon(domain.NoField)
	if signal.Field.String() != "(-1, -1)" {
		t.Fatalf("expected sentinel rendering (-1, -1), got %s", signal.Field.String())
	}
}
