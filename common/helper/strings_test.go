package helper

import "testing"

func TestCtypeDigit(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"0123456789", true},
		{"42", true},
		{"", false},
		{"12a", false},
		{"-1", false},
		{"1 2", false},
	}
	for _, c := range cases {
		if got := CtypeDigit(c.in); got != c.want {
			t.Fatalf("CtypeDigit(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCtypeAlnum(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"T20260826abc", true},
		{"ABCxyz09", true},
		{"", false},
		{"a_b", false},
		{"a-b", false},
		{"a b", false},
		{"票号1", false},
	}
	for _, c := range cases {
		if got := CtypeAlnum(c.in); got != c.want {
			t.Fatalf("CtypeAlnum(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsEmptyString(t *testing.T) {
	if !IsEmptyString("") || !IsEmptyString("   ") || !IsEmptyString("\t\n") {
		t.Fatal("blank strings should be empty")
	}
	if IsEmptyString(" x ") {
		t.Fatal("non-blank string should not be empty")
	}
}
