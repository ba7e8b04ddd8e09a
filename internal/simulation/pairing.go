package simulation

import "math/rand"

type binding struct {
	primary   string
	secondary string
}

// pairActors assigns accounts to count actors. With a single account every
// actor gets an empty secondary.
func pairActors(ids []string, count int, pairing Pairing, rng *rand.Rand) []binding {
	out := make([]binding, count)
	n := len(ids)
	if n == 0 {
		return out
	}

	for i := range out {
		switch pairing {
		case PairRandom:
			p := rng.Intn(n)
			out[i].primary = ids[p]
			if n > 1 {
				s := rng.Intn(n - 1)
				if s >= p {
					s++
				}
				out[i].secondary = ids[s]
			}
		default:
			out[i].primary = ids[i%n]
			if n > 1 {
				out[i].secondary = ids[(i+1)%n]
			}
		}
	}
	return out
}
