package sequence

// Stats summarizes the serial numbers of one kind.
type Stats struct {
	Count    int   `json:"count"`
	Missing  int   `json:"missing"`
	Distinct int   `json:"distinct"`
	Min      int64 `json:"min"`
	Max      int64 `json:"max"`
	Counter  int64 `json:"counter"`
}

// Dense reports whether the live serials are exactly {1..Count} and the
// counter agrees with the count.
func (s Stats) Dense() bool {
	if s.Missing > 0 || s.Distinct != s.Count || s.Counter != int64(s.Count) {
		return false
	}
	if s.Count == 0 {
		return true
	}
	return s.Min == 1 && s.Max == int64(s.Count)
}
