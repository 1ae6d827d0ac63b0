package helper

import (
	"strings"
	"testing"
)

func TestIsMoneyFormat(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"10", true},
		{"10.5", true},
		{"10.50", true},
		{"0", true},
		{"0.01", true},
		{"", false},
		{"-1", false},
		{"10.500", false},
		{"01", false},
		{"abc", false},
		{"1e3", false},
	}
	for _, c := range cases {
		if got := IsMoneyFormat(c.in); got != c.want {
			t.Fatalf("IsMoneyFormat(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestMoneyToUnits(t *testing.T) {
	cases := []struct {
		in    string
		units int64
		ok    bool
	}{
		{"10", 1000, true},
		{"10.5", 1050, true},
		{"0.01", 1, true},
		{"0", 0, true},
		{"abc", 0, false},
	}
	for _, c := range cases {
		got, ok := MoneyToUnits(c.in)
		if ok != c.ok || got != c.units {
			t.Fatalf("MoneyToUnits(%q) = (%d,%v), want (%d,%v)", c.in, got, ok, c.units, c.ok)
		}
	}
}

func TestUnitsToMoney(t *testing.T) {
	if got := UnitsToMoney(1050); got != "10.50" {
		t.Fatalf("UnitsToMoney(1050) = %q, want 10.50", got)
	}
	if got := UnitsToMoney(1); got != "0.01" {
		t.Fatalf("UnitsToMoney(1) = %q, want 0.01", got)
	}
}

func TestParsePurchaseFromJSON(t *testing.T) {
	body := `{"game_id":"g1","numbers":[3,17,42],"payment":"10.00","idempotency_key":"k1"}`
	out, ok, msg := ParsePurchaseFromJSON(strings.NewReader(body))
	if !ok {
		t.Fatalf("parse failed: %s", msg)
	}
	if out.GameId != "g1" || len(out.Numbers) != 3 || out.Payment != "10.00" || out.IdempotencyKey != "k1" {
		t.Fatalf("unexpected parse result: %+v", out)
	}
	if ok, msg := ValidatePurchase(&out); !ok {
		t.Fatalf("validate failed: %s", msg)
	}
	if out.Platform != 1 {
		t.Fatalf("platform should default to 1, got %d", out.Platform)
	}
}

func TestValidatePurchaseRejectsBadNumbers(t *testing.T) {
	cases := [][]int{
		nil,
		{1, 2},
		{1, 2, 2},
		{0, 2, 3},
		{1, 2, 101},
		{1, 2, 3, 4},
	}
	for _, nums := range cases {
		in := PurchaseParsed{GameId: "g1", Numbers: nums, Payment: "10", IdempotencyKey: "k"}
		if ok, _ := ValidatePurchase(&in); ok {
			t.Fatalf("numbers %v should be rejected", nums)
		}
	}
}

func TestValidateCreateGame(t *testing.T) {
	good := CreateGameParsed{TicketPrice: "10.00", MaxTickets: 100, EndTime: 1700000000000}
	if ok, msg := ValidateCreateGame(&good); !ok {
		t.Fatalf("validate failed: %s", msg)
	}

	sealed := CreateGameParsed{TicketPrice: "10", MaxTickets: 100, EndTime: 1700000000000, SealEnabled: true, UnlockTime: 1700000000000}
	if ok, _ := ValidateCreateGame(&sealed); ok {
		t.Fatal("unlock_time <= end_time should be rejected when sealed")
	}

	badPrice := CreateGameParsed{TicketPrice: "1.234", MaxTickets: 100, EndTime: 1700000000000}
	if ok, _ := ValidateCreateGame(&badPrice); ok {
		t.Fatal("3-decimal ticket_price should be rejected")
	}

	badMax := CreateGameParsed{TicketPrice: "10", MaxTickets: 0, EndTime: 1700000000000}
	if ok, _ := ValidateCreateGame(&badMax); ok {
		t.Fatal("max_tickets = 0 should be rejected")
	}
}

func TestValidateSeedCallback(t *testing.T) {
	good := SeedCallbackParsed{RequestId: "req-1", Seed: strings.Repeat("ab", 32)}
	if ok, msg := ValidateSeedCallback(&good); !ok {
		t.Fatalf("validate failed: %s", msg)
	}

	short := SeedCallbackParsed{RequestId: "req-1", Seed: "abcd"}
	if ok, _ := ValidateSeedCallback(&short); ok {
		t.Fatal("short seed should be rejected")
	}

	nonHex := SeedCallbackParsed{RequestId: "req-1", Seed: strings.Repeat("zz", 32)}
	if ok, _ := ValidateSeedCallback(&nonHex); ok {
		t.Fatal("non-hex seed should be rejected")
	}
}

func TestValidateEmergencyReveal(t *testing.T) {
	good := EmergencyRevealParsed{GameId: "g1", Numbers: []int{3, 17, 42}, Operator: "admin"}
	if ok, msg := ValidateEmergencyReveal(&good); !ok {
		t.Fatalf("validate failed: %s", msg)
	}

	noOp := EmergencyRevealParsed{GameId: "g1", Numbers: []int{3, 17, 42}}
	if ok, _ := ValidateEmergencyReveal(&noOp); ok {
		t.Fatal("missing operator should be rejected")
	}
}

func TestParseNumbersCSV(t *testing.T) {
	nums, ok := parseNumbersCSV("3, 17,42")
	if !ok || len(nums) != 3 || nums[0] != 3 || nums[1] != 17 || nums[2] != 42 {
		t.Fatalf("unexpected result: %v %v", nums, ok)
	}
	if _, ok := parseNumbersCSV("3,x,42"); ok {
		t.Fatal("non-integer entry should fail")
	}
}
