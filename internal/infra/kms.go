package infra

import (
	"context"
	"encoding/json"
	"fmt"

	kms "cloud.google.com/go/kms/apiv1"
	kmspb "cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/googleapis/gax-go/v2"

	"rsa-visualizer-service/internal/domain"
)

// privateKeyAAD は秘密鍵の暗号文に結び付ける追加認証データ。
var privateKeyAAD = []byte("rsa-visualizer/bob-private-key/v1")

// keyManagementAPI はKMSClientが使うCloud KMSの操作。
type keyManagementAPI interface {
	Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...gax.CallOption) (*kmspb.EncryptResponse, error)
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...gax.CallOption) (*kmspb.DecryptResponse, error)
	Close() error
}

// KMSClient は実行記録に保存するBobの秘密鍵をCloud KMSで封印する。
type KMSClient struct {
	client  keyManagementAPI
	keyName string
}

// NewKMSClient は指定したキー名でKMSClientを生成する。
func NewKMSClient(ctx context.Context, keyName string) (*KMSClient, error) {
	if keyName == "" {
		return nil, fmt.Errorf("KMS key name is required")
	}

	client, err := kms.NewKeyManagementClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating KMS client: %w", err)
	}
	return newKMSClient(client, keyName), nil
}

func newKMSClient(client keyManagementAPI, keyName string) *KMSClient {
	return &KMSClient{client: client, keyName: keyName}
}

// sealedPrivateKey は封印前の秘密鍵のJSON表現。
type sealedPrivateKey struct {
	N int64 `json:"n"`
	D int64 `json:"d"`
}

// SealPrivateKey は秘密鍵 (n, d) をJSONにしてKMSで暗号化する。
func (c *KMSClient) SealPrivateKey(ctx context.Context, key domain.PrivateKey) ([]byte, error) {
	plain, err := json.Marshal(sealedPrivateKey{N: key.N, D: key.D})
	if err != nil {
		return nil, fmt.Errorf("marshaling private key: %w", err)
	}
	resp, err := c.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:                        c.keyName,
		Plaintext:                   plain,
		AdditionalAuthenticatedData: privateKeyAAD,
	})
	if err != nil {
		return nil, fmt.Errorf("encrypting private key: %w", err)
	}
	return resp.Ciphertext, nil
}

// UnsealPrivateKey はSealPrivateKeyで封印した秘密鍵を復号する。
func (c *KMSClient) UnsealPrivateKey(ctx context.Context, sealed []byte) (domain.PrivateKey, error) {
	resp, err := c.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:                        c.keyName,
		Ciphertext:                  sealed,
		AdditionalAuthenticatedData: privateKeyAAD,
	})
	if err != nil {
		return domain.PrivateKey{}, fmt.Errorf("decrypting private key: %w", err)
	}

	var key sealedPrivateKey
	if err := json.Unmarshal(resp.Plaintext, &key); err != nil {
		return domain.PrivateKey{}, fmt.Errorf("unmarshaling private key: %w", err)
	}
	if key.N < 2 || key.D < 1 {
		return domain.PrivateKey{}, fmt.Errorf("unsealed private key (n=%d, d=%d) is invalid", key.N, key.D)
	}
	return domain.PrivateKey{N: key.N, D: key.D}, nil
}

// Close はKMSクライアントを閉じる。
func (c *KMSClient) Close() error {
	return c.client.Close()
}
