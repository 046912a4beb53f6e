// Package domain はドメインモデルとビジネスルールを定義する。
package domain

// PublicKey は公開鍵 (n, e) を表す。暗号化に使う。
type PublicKey struct {
	N int64
	E int64
}

// PrivateKey は秘密鍵 (n, d) を表す。復号に使う。
type PrivateKey struct {
	N int64
	D int64
}

// KeyPair は一人分の鍵ペアを表す。生成後はリセットまで変更しない。
type KeyPair struct {
	PublicKey  PublicKey
	PrivateKey PrivateKey
}
