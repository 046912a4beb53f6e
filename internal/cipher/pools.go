// Package cipher は小さな整数上の教科書RSA（鍵生成・暗号化・復号）を提供する。
// 学習用の可視化が目的であり、暗号学的な安全性はない。
package cipher

import "fmt"

const (
	// MaxModulus はModPowの中間値がint64に収まるnの上限。
	MaxModulus = 1<<31 - 1

	// maxPrime はn = p*qがMaxModulus以下に収まる素数の上限。
	maxPrime = 46340
)

// Pools は鍵生成で使う素数と公開指数の候補集合。
type Pools struct {
	Primes    []int64
	Exponents []int64
}

// DefaultPools は11〜97の素数21個と公開指数候補10個。
func DefaultPools() Pools {
	return Pools{
		Primes: []int64{
			11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47,
			53, 59, 61, 67, 71, 73, 79, 83, 89, 97,
		},
		Exponents: []int64{3, 5, 7, 11, 13, 17, 19, 23, 29, 31},
	}
}

// PoolsFrom は空でない値だけデフォルトを上書きしたPoolsを返す。
func PoolsFrom(primes, exponents []int64) Pools {
	p := DefaultPools()
	if len(primes) > 0 {
		p.Primes = primes
	}
	if len(exponents) > 0 {
		p.Exponents = exponents
	}
	return p
}

// Validate は鍵生成に使えるプールかどうかを検査する。
func (p Pools) Validate() error {
	distinct := make(map[int64]struct{}, len(p.Primes))
	for _, v := range p.Primes {
		if v < 2 {
			return fmt.Errorf("%w: prime %d is too small", ErrInvalidPools, v)
		}
		if v > maxPrime {
			return fmt.Errorf("%w: prime %d is too large", ErrInvalidPools, v)
		}
		if !isPrime(v) {
			return fmt.Errorf("%w: prime %d is not prime", ErrInvalidPools, v)
		}
		distinct[v] = struct{}{}
	}
	if len(distinct) < 2 {
		return fmt.Errorf("%w: need at least two distinct primes", ErrInvalidPools)
	}
	if len(p.Exponents) == 0 {
		return fmt.Errorf("%w: exponent pool is empty", ErrInvalidPools)
	}
	for _, e := range p.Exponents {
		if e < 2 {
			return fmt.Errorf("%w: exponent %d is too small", ErrInvalidPools, e)
		}
	}
	return nil
}

// isPrime は試し割りで素数判定する。vはmaxPrime以下を想定する。
func isPrime(v int64) bool {
	if v < 2 {
		return false
	}
	for d := int64(2); d*d <= v; d++ {
		if v%d == 0 {
			return false
		}
	}
	return true
}
