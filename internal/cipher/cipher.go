package cipher

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"rsa-visualizer-service/internal/domain"
)

var (
	// ErrInvalidPools はプールから鍵を生成できない場合のエラー。
	ErrInvalidPools = errors.New("invalid key generation pools")

	// ErrNoCoprimeExponent はphiと互いに素な公開指数候補が存在しない場合のエラー。
	ErrNoCoprimeExponent = errors.New("no exponent candidate is coprime with phi")

	// ErrNoInverse はモジュラ逆元が存在しない場合のエラー。
	ErrNoInverse = errors.New("modular inverse does not exist")

	// ErrCodeOutOfRange は文字コードがn以上で復号できない場合のエラー。
	ErrCodeOutOfRange = errors.New("character code is not less than modulus")

	// ErrValueOutOfRange は暗号文の値が[0, n)の範囲外の場合のエラー。
	ErrValueOutOfRange = errors.New("ciphertext value is out of range")
)

// Generator は鍵ペアを生成する。並行に呼び出してよい。
type Generator struct {
	pools Pools

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator は指定したプールと乱数源でGeneratorを生成する。
// rngがnilの場合はランダムなシードを使う。
func NewGenerator(pools Pools, rng *rand.Rand) (*Generator, error) {
	if err := pools.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{pools: pools, rng: rng}, nil
}

var defaultGenerator, _ = NewGenerator(DefaultPools(), nil)

// GenerateKeyPair はデフォルトのプールで鍵ペアを生成する。
func GenerateKeyPair() (domain.KeyPair, error) {
	return defaultGenerator.GenerateKeyPair()
}

// Pools は生成に使うプールを返す。
func (g *Generator) Pools() Pools {
	return g.pools
}

// GenerateKeyPair は異なる2つの素数p, qを選び、鍵ペアを生成する。
func (g *Generator) GenerateKeyPair() (domain.KeyPair, error) {
	g.mu.Lock()
	p := g.pick(g.pools.Primes)
	q := g.pick(g.pools.Primes)
	for q == p {
		q = g.pick(g.pools.Primes)
	}
	n := p * q
	phi := (p - 1) * (q - 1)

	// 互いに素な候補から一様に選ぶ（互いに素になるまで引き直すのと同じ分布）
	var candidates []int64
	for _, e := range g.pools.Exponents {
		if GCD(e, phi) == 1 {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		g.mu.Unlock()
		return domain.KeyPair{}, fmt.Errorf("%w: p=%d q=%d phi=%d", ErrNoCoprimeExponent, p, q, phi)
	}
	e := g.pick(candidates)
	g.mu.Unlock()

	d, err := ModInverse(e, phi)
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("computing private exponent: %w", err)
	}

	return domain.KeyPair{
		PublicKey:  domain.PublicKey{N: n, E: e},
		PrivateKey: domain.PrivateKey{N: n, D: d},
	}, nil
}

func (g *Generator) pick(vals []int64) int64 {
	return vals[g.rng.IntN(len(vals))]
}

// Encrypt はメッセージの各文字コードcを c^e mod n に変換する。
// 出力は入力の文字（コードポイント）と1対1に対応する。
func Encrypt(message string, pub domain.PublicKey) ([]int64, error) {
	encrypted := make([]int64, 0, len(message))
	i := 0
	for _, r := range message {
		code := int64(r)
		if code >= pub.N {
			return nil, fmt.Errorf("%w: %q (code %d) at index %d, n=%d", ErrCodeOutOfRange, r, code, i, pub.N)
		}
		encrypted = append(encrypted, ModPow(code, pub.E, pub.N))
		i++
	}
	return encrypted, nil
}

// Decrypt は各値xを x^d mod n で文字コードに戻し、連結した文字列を返す。
func Decrypt(ciphertext []int64, priv domain.PrivateKey) (string, error) {
	runes := make([]rune, len(ciphertext))
	for i, x := range ciphertext {
		if x < 0 || x >= priv.N {
			return "", fmt.Errorf("%w: %d at index %d, n=%d", ErrValueOutOfRange, x, i, priv.N)
		}
		runes[i] = rune(ModPow(x, priv.D, priv.N))
	}
	return string(runes), nil
}

// ModPow は二乗乗算法で base^exp mod mod を計算する。
// 中間値は mod^2 を超えないため、mod < 2^31 であればint64で溢れない。
func ModPow(base, exp, mod int64) int64 {
	if mod == 1 {
		return 0
	}
	result := int64(1)
	base %= mod
	if base < 0 {
		base += mod
	}
	for exp > 0 {
		if exp&1 == 1 {
			result = result * base % mod
		}
		exp >>= 1
		base = base * base % mod
	}
	return result
}

// GCD は最大公約数を返す。
func GCD(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

// ModInverse は拡張ユークリッド互除法で a*x ≡ 1 (mod m) となる x ∈ [1, m) を返す。
func ModInverse(a, m int64) (int64, error) {
	if m < 2 {
		return 0, fmt.Errorf("%w: modulus %d", ErrNoInverse, m)
	}
	oldR, r := a%m, m
	if oldR < 0 {
		oldR += m
	}
	oldS, s := int64(1), int64(0)
	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldS, s = s, oldS-q*s
	}
	if oldR != 1 {
		return 0, fmt.Errorf("%w: gcd(%d, %d) = %d", ErrNoInverse, a, m, oldR)
	}
	x := oldS % m
	if x < 0 {
		x += m
	}
	return x, nil
}
