package matching

// SequenceRatio returns the Ratcliff/Obershelp similarity of a and b:
// 2*M/T where M is the number of runes in matching blocks found by repeated
// longest-common-block search and T is the total rune count. Two empty
// strings are identical.
//
// Long inputs (200 runes or more) ignore runes of b that occur in more than
// 1% of its positions when seeding matches, which keeps the search linear
// for repetitive text.
func SequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	s := newSequenceMatcher(ra, rb)
	return 2.0 * float64(s.matchingRunes()) / float64(total)
}

type sequenceMatcher struct {
	a, b []rune
	b2j  map[rune][]int
}

func newSequenceMatcher(a, b []rune) *sequenceMatcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	if n := len(b); n >= 200 {
		limit := n/100 + 1
		for r, positions := range b2j {
			if len(positions) > limit {
				delete(b2j, r)
			}
		}
	}
	return &sequenceMatcher{a: a, b: b, b2j: b2j}
}

type span struct {
	alo, ahi, blo, bhi int
}

func (s *sequenceMatcher) matchingRunes() int {
	matched := 0
	queue := []span{{0, len(s.a), 0, len(s.b)}}
	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := s.longestMatch(cur.alo, cur.ahi, cur.blo, cur.bhi)
		if k == 0 {
			continue
		}
		matched += k
		if cur.alo < i && cur.blo < j {
			queue = append(queue, span{cur.alo, i, cur.blo, j})
		}
		if i+k < cur.ahi && j+k < cur.bhi {
			queue = append(queue, span{i + k, cur.ahi, j + k, cur.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the given
// bounds, preferring the earliest i and then the earliest j.
func (s *sequenceMatcher) longestMatch(alo, ahi, blo, bhi int) (int, int, int) {
	besti, bestj, bestsize := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range s.b2j[s.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	// Runes pruned as popular never seed a match but may still extend one.
	for besti > alo && bestj > blo && s.a[besti-1] == s.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && s.a[besti+bestsize] == s.b[bestj+bestsize] {
		bestsize++
	}
	return besti, bestj, bestsize
}
