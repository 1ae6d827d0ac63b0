package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestGenerateSignature(t *testing.T) {
	appKey, ts, nonce, body, secret := "lotto_demo", "1723111200", "abc123", `{"game_id":"g1"}`, "s3cret"

	got := generateSignature(appKey, ts, nonce, body, secret)

	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(appKey + ts + nonce + body))
	want := hex.EncodeToString(h.Sum(nil))

	if got != want {
		t.Fatalf("signature = %s, want %s", got, want)
	}
	if len(got) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(got))
	}

	// 任一输入变化都要改变签名
	if generateSignature(appKey, ts, nonce, body+"x", secret) == got {
		t.Fatal("body change did not change signature")
	}
	if generateSignature(appKey, ts, "other", body, secret) == got {
		t.Fatal("nonce change did not change signature")
	}
}

func TestSecureCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"abc", "abc", true},
		{"abc", "abd", false},
		{"abc", "abcd", false},
		{"", "", true},
		{"", "a", false},
	}
	for _, c := range cases {
		if got := secureCompare(c.a, c.b); got != c.want {
			t.Fatalf("secureCompare(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestIsValidPlatformUserID(t *testing.T) {
	valid := []string{"u1", "demo_user_001", "A-B_c9"}
	for _, id := range valid {
		if !IsValidPlatformUserID(id) {
			t.Fatalf("%q should be valid", id)
		}
	}

	tooLong := make([]byte, 65)
	for i := range tooLong {
		tooLong[i] = 'a'
	}
	invalid := []string{"", "user id", "user@1", "用户1", string(tooLong)}
	for _, id := range invalid {
		if IsValidPlatformUserID(id) {
			t.Fatalf("%q should be invalid", id)
		}
	}
}
