package fec

// Hard-decision Viterbi decoder for the zero-terminated code. Metrics are
// cumulative Hamming distances; ties between the two merging paths resolve to
// the even predecessor (pred0), which keeps decodes reproducible bit for bit.

// DecodeTerminated recovers the maximum-likelihood information sequence from
// coded, assuming the encoder ran with terminate=true. Trailing bits beyond
// the last multiple of 3 are discarded. With dropTail the six tail bits are
// removed, so the result has max(0, nSteps-6) bits.
//
// The call never fails: any well-formed input has a maximum-likelihood path.
// Received values other than 0/1 count as full-distance disagreements.
func (c *ConvCode) DecodeTerminated(coded []byte, dropTail bool) []byte {
	nSteps := len(coded) / 3
	if nSteps == 0 {
		return []byte{}
	}
	tr := c.trellis

	// Path metrics: only state 0 is reachable at t=0. The sentinel exceeds
	// any achievable distance of 3*nSteps.
	inf := int32(3*nSteps + 1)
	metrics := make([]int32, numStates)
	scratch := make([]int32, numStates)
	for s := 1; s < numStates; s++ {
		metrics[s] = inf
	}

	// prev[t*64+s] is the winning predecessor of state s at step t.
	prev := make([]uint8, nSteps*numStates)

	for t := 0; t < nSteps; t++ {
		y0, y1, y2 := coded[3*t], coded[3*t+1], coded[3*t+2]
		row := prev[t*numStates : (t+1)*numStates]
		for s := 0; s < numStates; s++ {
			u := tr.UForState[s]
			p0, p1 := tr.Pred0[s], tr.Pred1[s]
			o0 := &tr.OutBits[p0][u]
			o1 := &tr.OutBits[p1][u]
			cand0 := metrics[p0] + hamming3(o0, y0, y1, y2)
			cand1 := metrics[p1] + hamming3(o1, y0, y1, y2)
			// Strict less-than: on a tie pred0 wins.
			if cand1 < cand0 {
				scratch[s] = cand1
				row[s] = p1
			} else {
				scratch[s] = cand0
				row[s] = p0
			}
		}
		metrics, scratch = scratch, metrics
	}

	// Traceback from state 0, the state the zero tail forces.
	uHat := make([]byte, nSteps)
	state := 0
	for t := nSteps - 1; t >= 0; t-- {
		uHat[t] = byte(state>>(convMemory-1)) & 1
		state = int(prev[t*numStates+state])
	}

	if dropTail {
		if nSteps <= convMemory {
			return []byte{}
		}
		return uHat[:nSteps-convMemory]
	}
	return uHat
}

func hamming3(o *[3]byte, y0, y1, y2 byte) int32 {
	var d int32
	if o[0] != y0 {
		d++
	}
	if o[1] != y1 {
		d++
	}
	if o[2] != y2 {
		d++
	}
	return d
}
