package cipher

import (
	"errors"
	"math/rand/v2"
	"testing"

	"rsa-visualizer-service/internal/domain"
)

// linearInverse は e*x ≡ 1 (mod m) となる最小のxを総当たりで探す。見つからなければ1。
func linearInverse(e, m int64) int64 {
	for x := int64(1); x < m; x++ {
		if e*x%m == 1 {
			return x
		}
	}
	return 1
}

// phiOf はnを素数プールで因数分解してphiを求める。
func phiOf(t *testing.T, n int64, primes []int64) int64 {
	t.Helper()
	for _, p := range primes {
		if n%p == 0 {
			q := n / p
			return (p - 1) * (q - 1)
		}
	}
	t.Fatalf("n=%d is not a product of pool primes", n)
	return 0
}

func newTestGenerator(t *testing.T, pools Pools) *Generator {
	t.Helper()
	g, err := NewGenerator(pools, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	return g
}

func TestModPow_TextbookVector(t *testing.T) {
	// p=11, q=13 → n=143, phi=120, e=7, d=103
	if got := ModPow(72, 7, 143); got != 19 {
		t.Errorf("want ModPow(72, 7, 143) = 19, got %d", got)
	}
	if got := ModPow(19, 103, 143); got != 72 {
		t.Errorf("want ModPow(19, 103, 143) = 72, got %d", got)
	}
}

func TestModPow_ZeroExponent(t *testing.T) {
	for _, mod := range []int64{2, 143, 8633} {
		for _, base := range []int64{0, 1, 72, 9999} {
			if got := ModPow(base, 0, mod); got != 1 {
				t.Errorf("ModPow(%d, 0, %d): want 1, got %d", base, mod, got)
			}
		}
	}
}

func TestModPow_ModulusOne(t *testing.T) {
	if got := ModPow(5, 3, 1); got != 0 {
		t.Errorf("want 0, got %d", got)
	}
}

func TestModPow_LargestDefaultModulus(t *testing.T) {
	// 97*89 = 8633; 結果を素朴な繰り返し乗算と比較する
	const n = 97 * 89
	base, exp := int64(8632), int64(31)
	want := int64(1)
	for i := int64(0); i < exp; i++ {
		want = want * base % n
	}
	if got := ModPow(base, exp, n); got != want {
		t.Errorf("want %d, got %d", want, got)
	}
}

func TestGCD(t *testing.T) {
	tests := []struct {
		a, b, want int64
	}{
		{7, 120, 1},
		{3, 120, 3},
		{120, 7, 1},
		{0, 5, 5},
		{-4, 6, 2},
	}
	for _, tt := range tests {
		if got := GCD(tt.a, tt.b); got != tt.want {
			t.Errorf("GCD(%d, %d): want %d, got %d", tt.a, tt.b, tt.want, got)
		}
	}
}

func TestModInverse_TextbookVector(t *testing.T) {
	d, err := ModInverse(7, 120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 103 {
		t.Errorf("want d=103, got %d", d)
	}
}

func TestModInverse_MatchesLinearSearchForDefaultPools(t *testing.T) {
	pools := DefaultPools()
	for i, p := range pools.Primes {
		for _, q := range pools.Primes[i+1:] {
			phi := (p - 1) * (q - 1)
			for _, e := range pools.Exponents {
				if GCD(e, phi) != 1 {
					continue
				}
				d, err := ModInverse(e, phi)
				if err != nil {
					t.Fatalf("ModInverse(%d, %d): unexpected error: %v", e, phi, err)
				}
				if want := linearInverse(e, phi); d != want {
					t.Errorf("ModInverse(%d, %d): want %d, got %d", e, phi, want, d)
				}
			}
		}
	}
}

func TestModInverse_NotCoprime(t *testing.T) {
	_, err := ModInverse(3, 120)
	if !errors.Is(err, ErrNoInverse) {
		t.Errorf("want ErrNoInverse, got %v", err)
	}
}

func TestModInverse_InvalidModulus(t *testing.T) {
	_, err := ModInverse(3, 1)
	if !errors.Is(err, ErrNoInverse) {
		t.Errorf("want ErrNoInverse, got %v", err)
	}
}

func TestGenerator_GenerateKeyPair_Properties(t *testing.T) {
	pools := DefaultPools()
	g := newTestGenerator(t, pools)

	for i := 0; i < 500; i++ {
		kp, err := g.GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair failed: %v", err)
		}
		if kp.PublicKey.N != kp.PrivateKey.N {
			t.Fatalf("public and private modulus differ: %d != %d", kp.PublicKey.N, kp.PrivateKey.N)
		}
		phi := phiOf(t, kp.PublicKey.N, pools.Primes)
		if GCD(kp.PublicKey.E, phi) != 1 {
			t.Errorf("gcd(e=%d, phi=%d) != 1", kp.PublicKey.E, phi)
		}
		if kp.PublicKey.E*kp.PrivateKey.D%phi != 1 {
			t.Errorf("e*d mod phi != 1 for e=%d d=%d phi=%d", kp.PublicKey.E, kp.PrivateKey.D, phi)
		}
		if kp.PrivateKey.D < 1 || kp.PrivateKey.D >= phi {
			t.Errorf("d=%d out of [1, %d)", kp.PrivateKey.D, phi)
		}
	}
}

func TestGenerator_DistinctPrimes(t *testing.T) {
	g := newTestGenerator(t, Pools{Primes: []int64{11, 13}, Exponents: []int64{7}})

	for i := 0; i < 50; i++ {
		kp, err := g.GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair failed: %v", err)
		}
		if kp.PublicKey.N != 143 {
			t.Fatalf("want n=143, got %d", kp.PublicKey.N)
		}
		if kp.PrivateKey.D != 103 {
			t.Fatalf("want d=103, got %d", kp.PrivateKey.D)
		}
	}
}

func TestGenerator_NoCoprimeExponent(t *testing.T) {
	g := newTestGenerator(t, Pools{Primes: []int64{11, 13}, Exponents: []int64{2, 3, 5}})

	_, err := g.GenerateKeyPair()
	if !errors.Is(err, ErrNoCoprimeExponent) {
		t.Errorf("want ErrNoCoprimeExponent, got %v", err)
	}
}

func TestNewGenerator_InvalidPools(t *testing.T) {
	tests := []struct {
		name  string
		pools Pools
	}{
		{"single prime", Pools{Primes: []int64{11, 11}, Exponents: []int64{3}}},
		{"no exponents", Pools{Primes: []int64{11, 13}}},
		{"tiny prime", Pools{Primes: []int64{1, 13}, Exponents: []int64{3}}},
		{"huge prime", Pools{Primes: []int64{11, 65537}, Exponents: []int64{3}}},
		{"tiny exponent", Pools{Primes: []int64{11, 13}, Exponents: []int64{1}}},
		{"composite primes", Pools{Primes: []int64{15, 21}, Exponents: []int64{11}}},
		{"one composite", Pools{Primes: []int64{11, 13, 91}, Exponents: []int64{7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.pools, nil)
			if !errors.Is(err, ErrInvalidPools) {
				t.Errorf("want ErrInvalidPools, got %v", err)
			}
		})
	}
}

func TestIsPrime(t *testing.T) {
	for _, v := range append(DefaultPools().Primes, 2, 3, 7919) {
		if !isPrime(v) {
			t.Errorf("%d: want prime", v)
		}
	}
	for _, v := range []int64{-7, 0, 1, 4, 9, 15, 21, 91, 7917} {
		if isPrime(v) {
			t.Errorf("%d: want not prime", v)
		}
	}
}

func TestPoolsFrom(t *testing.T) {
	p := PoolsFrom(nil, []int64{3})
	if len(p.Primes) != 21 {
		t.Errorf("want 21 default primes, got %d", len(p.Primes))
	}
	if len(p.Exponents) != 1 || p.Exponents[0] != 3 {
		t.Errorf("want exponents [3], got %v", p.Exponents)
	}
}

func TestEncrypt_TextbookVector(t *testing.T) {
	pub := domain.PublicKey{N: 143, E: 7}

	ct, err := Encrypt("H", pub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ct) != 1 || ct[0] != 19 {
		t.Errorf("want [19], got %v", ct)
	}

	pt, err := Decrypt(ct, domain.PrivateKey{N: 143, D: 103})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt != "H" {
		t.Errorf("want H, got %q", pt)
	}
}

func TestEncrypt_LengthAndAlignment(t *testing.T) {
	pub := domain.PublicKey{N: 143, E: 7}
	msg := "Hello Bob!"

	ct, err := Encrypt(msg, pub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ct) != len(msg) {
		t.Fatalf("want %d values, got %d", len(msg), len(ct))
	}
	for i, r := range msg {
		if want := ModPow(int64(r), 7, 143); ct[i] != want {
			t.Errorf("index %d: want %d, got %d", i, want, ct[i])
		}
	}
}

func TestEncrypt_Empty(t *testing.T) {
	ct, err := Encrypt("", domain.PublicKey{N: 143, E: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ct) != 0 {
		t.Errorf("want empty ciphertext, got %v", ct)
	}
}

func TestEncrypt_CodeOutOfRange(t *testing.T) {
	// 'é' = 233 >= 143
	_, err := Encrypt("Hé", domain.PublicKey{N: 143, E: 7})
	if !errors.Is(err, ErrCodeOutOfRange) {
		t.Errorf("want ErrCodeOutOfRange, got %v", err)
	}
}

func TestDecrypt_ValueOutOfRange(t *testing.T) {
	priv := domain.PrivateKey{N: 143, D: 103}
	for _, ct := range [][]int64{{143}, {-1}, {19, 500}} {
		_, err := Decrypt(ct, priv)
		if !errors.Is(err, ErrValueOutOfRange) {
			t.Errorf("%v: want ErrValueOutOfRange, got %v", ct, err)
		}
	}
}

func TestRoundTrip_GeneratedKeys(t *testing.T) {
	g := newTestGenerator(t, DefaultPools())

	// 全ASCIIは最小のn=143未満
	msg := make([]rune, 0, 128)
	for c := rune(0); c < 128; c++ {
		msg = append(msg, c)
	}

	for i := 0; i < 200; i++ {
		kp, err := g.GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair failed: %v", err)
		}
		ct, err := Encrypt(string(msg), kp.PublicKey)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		pt, err := Decrypt(ct, kp.PrivateKey)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if pt != string(msg) {
			t.Fatalf("round trip mismatch with n=%d e=%d d=%d", kp.PublicKey.N, kp.PublicKey.E, kp.PrivateKey.D)
		}
	}
}

func TestRoundTrip_NonASCIIBelowModulus(t *testing.T) {
	// n = 97*89 = 8633, phi = 96*88 = 8448, e = 5, d = 5069
	pub := domain.PublicKey{N: 8633, E: 5}
	d, err := ModInverse(5, 8448)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	priv := domain.PrivateKey{N: 8633, D: d}
	msg := "héllo ωorld €"

	ct, err := Encrypt(msg, pub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ct) != len([]rune(msg)) {
		t.Errorf("want %d values, got %d", len([]rune(msg)), len(ct))
	}
	pt, err := Decrypt(ct, priv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt != msg {
		t.Errorf("want %q, got %q", msg, pt)
	}
}

func TestGenerateKeyPair_Default(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kp.PublicKey.N < 11*13 || kp.PublicKey.N > 97*89 {
		t.Errorf("n=%d outside default range", kp.PublicKey.N)
	}
}
