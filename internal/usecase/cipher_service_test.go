package usecase

import (
	"context"
	"errors"
	"testing"

	"rsa-visualizer-service/internal/cipher"
	"rsa-visualizer-service/internal/domain"
)

func TestCipherService_RoundTrip(t *testing.T) {
	svc := NewCipherService(newSeededGenerator(t))
	ctx := context.Background()

	kp, err := svc.GenerateKeyPair(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ct, err := svc.Encrypt(ctx, "Hello Bob!", kp.PublicKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pt, err := svc.Decrypt(ctx, ct, kp.PrivateKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt != "Hello Bob!" {
		t.Errorf("want Hello Bob!, got %q", pt)
	}
}

func TestCipherService_GenerateKeyPair_Error(t *testing.T) {
	svc := NewCipherService(&mockKeyGenerator{err: cipher.ErrNoCoprimeExponent})

	_, err := svc.GenerateKeyPair(context.Background())
	if !errors.Is(err, cipher.ErrNoCoprimeExponent) {
		t.Errorf("want ErrNoCoprimeExponent, got %v", err)
	}
}

func TestCipherService_InvalidKeys(t *testing.T) {
	svc := NewCipherService(&mockKeyGenerator{pairs: []domain.KeyPair{keys143}})
	ctx := context.Background()

	for _, pub := range []domain.PublicKey{{N: 1, E: 3}, {N: 143, E: 0}, {N: cipher.MaxModulus + 1, E: 3}} {
		if _, err := svc.Encrypt(ctx, "H", pub); !errors.Is(err, domain.ErrInvalidKey) {
			t.Errorf("%+v: want ErrInvalidKey, got %v", pub, err)
		}
	}
	for _, priv := range []domain.PrivateKey{{N: 0, D: 3}, {N: 143, D: -1}} {
		if _, err := svc.Decrypt(ctx, []int64{19}, priv); !errors.Is(err, domain.ErrInvalidKey) {
			t.Errorf("%+v: want ErrInvalidKey, got %v", priv, err)
		}
	}
}

func TestCipherService_CodeOutOfRange(t *testing.T) {
	svc := NewCipherService(&mockKeyGenerator{pairs: []domain.KeyPair{keys143}})

	_, err := svc.Encrypt(context.Background(), "é", keys143.PublicKey)
	if !errors.Is(err, cipher.ErrCodeOutOfRange) {
		t.Errorf("want ErrCodeOutOfRange, got %v", err)
	}
}

func TestCipherService_Decrypt_TooLong(t *testing.T) {
	svc := NewCipherService(&mockKeyGenerator{pairs: []domain.KeyPair{keys143}})

	_, err := svc.Decrypt(context.Background(), make([]int64, MaxMessageLength+1), keys143.PrivateKey)
	if !errors.Is(err, domain.ErrInvalidMessage) {
		t.Errorf("want ErrInvalidMessage, got %v", err)
	}
}
