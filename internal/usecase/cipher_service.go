package usecase

import (
	"context"
	"fmt"

	"rsa-visualizer-service/internal/cipher"
	"rsa-visualizer-service/internal/domain"
)

// CipherService はデモに依存しない鍵生成・暗号化・復号を提供する。
type CipherService struct {
	keygen KeyGenerator
}

// NewCipherService は新しいCipherServiceを生成する。
func NewCipherService(keygen KeyGenerator) *CipherService {
	return &CipherService{keygen: keygen}
}

// GenerateKeyPair は鍵ペアを生成する。
func (s *CipherService) GenerateKeyPair(ctx context.Context) (domain.KeyPair, error) {
	kp, err := s.keygen.GenerateKeyPair()
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("generating key pair: %w", err)
	}
	return kp, nil
}

// Encrypt はメッセージを公開鍵で暗号化する。
func (s *CipherService) Encrypt(ctx context.Context, message string, pub domain.PublicKey) ([]int64, error) {
	if err := validateMessage(message); err != nil {
		return nil, err
	}
	if pub.N < 2 || pub.N > cipher.MaxModulus || pub.E < 1 {
		return nil, fmt.Errorf("%w: public key (n=%d, e=%d)", domain.ErrInvalidKey, pub.N, pub.E)
	}
	return cipher.Encrypt(message, pub)
}

// Decrypt は暗号文を秘密鍵で復号する。
func (s *CipherService) Decrypt(ctx context.Context, ciphertext []int64, priv domain.PrivateKey) (string, error) {
	if len(ciphertext) > MaxMessageLength {
		return "", fmt.Errorf("%w: longer than %d values", domain.ErrInvalidMessage, MaxMessageLength)
	}
	if priv.N < 2 || priv.N > cipher.MaxModulus || priv.D < 1 {
		return "", fmt.Errorf("%w: private key (n=%d, d=%d)", domain.ErrInvalidKey, priv.N, priv.D)
	}
	return cipher.Decrypt(ciphertext, priv)
}
