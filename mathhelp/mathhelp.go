package mathhelp

import "golang.org/x/exp/constraints"

func BetweenInc[T constraints.Ordered](f, p, q T) bool {
	if p <= q {
		return p <= f && f <= q
	}
	return q <= f && f <= p
}

func Clamp[T constraints.Ordered](f, p, q T) T {
	if f < p {
		return p
	}
	if f > q {
		return q
	}
	return f
}

func Bool2int(b bool) int {
	if b {
		return 1
	}
	return 0
}
