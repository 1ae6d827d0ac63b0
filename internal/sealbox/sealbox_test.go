package sealbox

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundtrip(t *testing.T) {
	plaintext := []byte(`{"game_id":42,"numbers":[7,34,90]}`)
	box, key, err := Seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if len(key) != KeyBytes {
		t.Fatalf("key length = %d", len(key))
	}

	got, err := Open(box, key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("roundtrip mismatch: %s", got)
	}

	// 重复打开同一个盒必须得到同一结果（幂等揭晓的基础）
	again, err := Open(box, key)
	if err != nil || !bytes.Equal(again, plaintext) {
		t.Fatalf("second open: %v %s", err, again)
	}
}

func TestOpenWrongKey(t *testing.T) {
	box, key, err := Seal([]byte("secret draw"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	bad := append([]byte(nil), key...)
	bad[0] ^= 0xff
	if _, err := Open(box, bad); err != ErrOpen {
		t.Fatalf("expected ErrOpen with wrong key, got %v", err)
	}
}

func TestOpenTamperedCiphertext(t *testing.T) {
	box, key, err := Seal([]byte("secret draw"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	b := []byte(box.Ciphertext)
	if b[0] == 'a' {
		b[0] = 'b'
	} else {
		b[0] = 'a'
	}
	box.Ciphertext = string(b)
	if _, err := Open(box, key); err == nil {
		t.Fatalf("expected failure on tampered ciphertext")
	}
}

func TestOpenMalformedPayload(t *testing.T) {
	_, key, err := Seal([]byte("x"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(Box{Nonce: "zz", Ciphertext: "00"}, key); err != ErrBadData {
		t.Fatalf("expected ErrBadData, got %v", err)
	}
	if _, err := Open(Box{Nonce: "00", Ciphertext: "00"}, key); err != ErrBadData {
		t.Fatalf("expected ErrBadData for short nonce, got %v", err)
	}
}

func TestKeySizeEnforced(t *testing.T) {
	if _, err := SealWithKey([]byte("x"), []byte("short")); err != ErrBadKey {
		t.Fatalf("expected ErrBadKey, got %v", err)
	}
	if _, err := Open(Box{}, []byte("short")); err != ErrBadKey {
		t.Fatalf("expected ErrBadKey, got %v", err)
	}
}
