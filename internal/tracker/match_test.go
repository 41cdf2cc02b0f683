package tracker

import "testing"

func TestAddressMatchSymmetric(t *testing.T) {
	if !addressMatch(1, 2, 2, 1) {
		t.Fatalf("expected a swapped IP pair to match")
	}
	if !addressMatch(1, 2, 1, 2) {
		t.Fatalf("expected an identical IP pair to match")
	}
	if addressMatch(1, 2, 3, 4) {
		t.Fatalf("expected an unrelated IP pair not to match")
	}
}

func TestPortMatchLoose(t *testing.T) {
	cases := []struct {
		entrySport, entryDport, pktSport, pktDport uint16
		want                                       bool
	}{
		{80, 40000, 80, 9999, true},   // pktSport == entrySport
		{80, 40000, 9999, 40000, true}, // pktDport == entryDport
		{80, 40000, 40000, 9999, true}, // pktSport == entryDport
		{80, 40000, 9999, 80, true},    // pktDport == entrySport
		{80, 40000, 1, 2, false},
	}
	for _, c := range cases {
		if got := portMatch(c.entrySport, c.entryDport, c.pktSport, c.pktDport); got != c.want {
			t.Errorf("portMatch(%d,%d,%d,%d) = %v, want %v", c.entrySport, c.entryDport, c.pktSport, c.pktDport, got, c.want)
		}
	}
}

func TestMatchesICMPIgnoresTypeAndSeq(t *testing.T) {
	if !matchesICMP(1, 2, 2, 1) {
		t.Fatalf("expected ICMP matching to use only the symmetric address pair")
	}
}
