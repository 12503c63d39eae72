package entropy

import "testing"

func TestNewSeededIsReproducible(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 20; i++ {
		if x, y := a.Intn(1000), b.Intn(1000); x != y {
			t.Fatalf("draw %d: %d != %d", i, x, y)
		}
	}
}

func TestCryptoSeedNonZero(t *testing.T) {
	for i := 0; i < 10; i++ {
		if CryptoSeed() <= 0 {
			t.Fatal("crypto seed must be positive")
		}
	}
}

func TestIntRange(t *testing.T) {
	src := New(7)
	for i := 0; i < 500; i++ {
		v := IntRange(src, 3, 8)
		if v < 3 || v > 8 {
			t.Fatalf("value %d outside [3,8]", v)
		}
	}
	if got := IntRange(src, 5, 2); got != 5 {
		t.Errorf("inverted range: got %d, want 5", got)
	}
}
