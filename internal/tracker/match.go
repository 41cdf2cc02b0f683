package tracker

// addressMatch reports whether a packet's (ipSrc, ipDst) pair matches an
// entry's (entrySrc, entryDst) pair in either order. This is the "IPv4
// pair matches in either order" half of the flow matching policy shared
// by all three trackers.
func addressMatch(entrySrc, entryDst, ipSrc, ipDst uint32) bool {
	return (entrySrc == ipDst && entryDst == ipSrc) ||
		(entrySrc == ipSrc && entryDst == ipDst)
}

// portMatch reports whether at least one of the packet's ports equals at
// least one of the entry's ports. Deliberately loose: it is not strict
// 4-tuple equality, and it will coalesce flows that merely share an
// endpoint and a single port. There is no setting that switches it to
// strict 4-tuple matching.
func portMatch(entrySport, entryDport, pktSport, pktDport uint16) bool {
	return entryDport == pktDport ||
		entrySport == pktSport ||
		entryDport == pktSport ||
		entrySport == pktDport
}

// matchesTCPUDP applies the shared TCP/UDP flow matching policy: the
// IPv4 pair must match in either order AND at least one port must match.
func matchesTCPUDP(entrySrc, entryDst uint32, entrySport, entryDport uint16, ipSrc, ipDst uint32, pktSport, pktDport uint16) bool {
	return addressMatch(entrySrc, entryDst, ipSrc, ipDst) &&
		portMatch(entrySport, entryDport, pktSport, pktDport)
}

// matchesICMP applies the ICMP flow matching policy: a symmetric IPv4
// pair, independent of type/sequence (those participate only at the
// point of event emission against the already-matched entry).
func matchesICMP(entrySrc, entryDst uint32, ipSrc, ipDst uint32) bool {
	return addressMatch(entrySrc, entryDst, ipSrc, ipDst)
}
