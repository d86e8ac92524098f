package cities

// Dedup drops candidates whose (Name, Region) was already seen, keeping the
// first occurrence and the input order.
func Dedup(candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))
	seen := make(map[identity]struct{}, len(candidates))
	for _, c := range candidates {
		id := c.identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, c)
	}
	return out
}
