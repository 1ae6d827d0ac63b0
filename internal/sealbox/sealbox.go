package sealbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
)

// 开奖结果的封存盒：AES-256-GCM 加密，密钥交由时间锁协作方托管，
// 解锁时间到达后密钥作为 unlock proof 回传。对核心而言密文是不透明的。

const KeyBytes = 32

var (
	ErrBadKey  = errors.New("sealbox: key must be 32 bytes")
	ErrOpen    = errors.New("sealbox: decryption failed")
	ErrBadData = errors.New("sealbox: malformed sealed payload")
)

// Box 封存后的不透明负载（nonce + 密文，hex编码便于直接入库）
type Box struct {
	Nonce      string
	Ciphertext string
}

// Seal 用随机生成的密钥封存明文，返回封存盒与密钥。
// 密钥只应交给时间锁托管方，不得与密文同处存储。
func Seal(plaintext []byte) (Box, []byte, error) {
	key := make([]byte, KeyBytes)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return Box{}, nil, err
	}
	box, err := SealWithKey(plaintext, key)
	if err != nil {
		return Box{}, nil, err
	}
	return box, key, nil
}

// SealWithKey 用调用方提供的密钥封存（测试与重放校验用）
func SealWithKey(plaintext, key []byte) (Box, error) {
	if len(key) != KeyBytes {
		return Box{}, ErrBadKey
	}
	aead, err := newAEAD(key)
	if err != nil {
		return Box{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Box{}, err
	}
	ct := aead.Seal(nil, nonce, plaintext, nil)
	return Box{
		Nonce:      hex.EncodeToString(nonce),
		Ciphertext: hex.EncodeToString(ct),
	}, nil
}

// Open 用密钥打开封存盒。密钥不符或负载被篡改时返回 ErrOpen，
// 调用方据此走可恢复路径，局保持 sealed 状态。
func Open(box Box, key []byte) ([]byte, error) {
	if len(key) != KeyBytes {
		return nil, ErrBadKey
	}
	nonce, err := hex.DecodeString(box.Nonce)
	if err != nil {
		return nil, ErrBadData
	}
	ct, err := hex.DecodeString(box.Ciphertext)
	if err != nil {
		return nil, ErrBadData
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, ErrBadData
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return pt, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
