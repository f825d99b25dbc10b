// Package transcript implements the Fiat-Shamir public coin shared by the
// prover and verifier (spec COMPONENT DESIGN 4.6). A prover channel is
// append-only and accumulates the serialized proof bytes as it writes; a
// verifier channel replays those same bytes and must reach byte-for-byte
// the same sequence of absorbs to derive identical challenges.
package transcript

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/merkle"
)

func keccak(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// coin is the shared public-coin state: a 32-byte digest and a sample
// counter, as described in spec 4.6.
type coin struct {
	digest  [32]byte
	counter uint64
}

func (c *coin) seed(seedBytes []byte) {
	c.digest = keccak(seedBytes)
	c.counter = 0
}

// absorb folds bytes into the digest and resets the sample counter.
func (c *coin) absorb(data []byte) {
	c.digest = keccak(c.digest[:], data)
	c.counter = 0
}

// squeeze produces a fresh 32-byte block derived from (digest, counter) and
// advances the counter, matching original_source/crypto/stark/src/channel.rs:
// Keccak(digest || 24 zero bytes || be_u64(counter)).
func (c *coin) squeeze() [32]byte {
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], c.counter)
	var padding [24]byte
	out := keccak(c.digest[:], padding[:], counterBytes[:])
	c.counter++
	return out
}

// powChallengeSeed returns the current digest without squeezing a fresh
// block. This reproduces a documented quirk of the original implementation
// (see SPEC_FULL.md 12): the PoW challenge seed reuses the live digest
// rather than drawing a new sample, so it is stable across repeated calls
// until the next absorb.
func (c *coin) powChallengeSeed() [32]byte {
	return c.digest
}

var fieldMask = byte(0x0f) // masks the top nibble to keep the value within 252 bits

// sampleFieldElement reject-samples 32-byte blocks, masked to 252 bits,
// until the value is below the field modulus, then treats the bytes as a
// Montgomery representative directly.
func (c *coin) sampleFieldElement() field.Element {
	for {
		block := c.squeeze()
		block[0] &= fieldMask
		if e, err := field.FromMontgomeryBytes(block); err == nil {
			return e
		}
	}
}

// sampleIndices draws n distinct indices into a domain of size 2^domainBits,
// sorted ascending: squeeze 256-bit blocks, split each into four 64-bit
// chunks masked to domainBits, take the first n, then sort and dedup
// duplicates by drawing further chunks.
func (c *coin) sampleIndices(n, domainBits int) []int {
	mask := uint64(1)<<uint(domainBits) - 1
	seen := make(map[int]bool, n)
	out := make([]int, 0, n)
	for len(out) < n {
		block := c.squeeze()
		for chunk := 0; chunk < 4 && len(out) < n; chunk++ {
			v := binary.BigEndian.Uint64(block[chunk*8:(chunk+1)*8]) & mask
			idx := int(v)
			if !seen[idx] {
				seen[idx] = true
				out = append(out, idx)
			}
		}
	}
	sortInts(out)
	return out
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// elementBytes serializes a field element per the wire format: 32-byte
// big-endian Montgomery representative.
func elementBytes(e field.Element) []byte {
	b := e.Bytes()
	return b[:]
}

// ProverChannel is the append-only prover-side transcript: every write both
// absorbs into the coin and appends to the accumulated proof bytes.
type ProverChannel struct {
	coin  coin
	proof []byte
}

// NewProverChannel seeds a prover channel from the public parameters of the
// statement being proven (e.g. a channel seed derived from the constraint
// system, per spec DATA MODEL "Constraint system").
func NewProverChannel(seed []byte) *ProverChannel {
	pc := &ProverChannel{}
	pc.coin.seed(seed)
	return pc
}

func (p *ProverChannel) WriteBytes(data []byte) {
	p.proof = append(p.proof, data...)
	p.coin.absorb(data)
}

func (p *ProverChannel) WriteElement(e field.Element) {
	p.WriteBytes(elementBytes(e))
}

func (p *ProverChannel) WriteElements(es []field.Element) {
	buf := make([]byte, 0, 32*len(es))
	for _, e := range es {
		buf = append(buf, elementBytes(e)...)
	}
	p.WriteBytes(buf)
}

func (p *ProverChannel) WriteHash(h merkle.Hash) {
	p.WriteBytes(h[:])
}

func (p *ProverChannel) WriteHashes(hs []merkle.Hash) {
	for _, h := range hs {
		p.WriteHash(h)
	}
}

// WriteNonce writes an 8-byte big-endian proof-of-work nonce.
func (p *ProverChannel) WriteNonce(nonce uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	p.WriteBytes(buf[:])
}

func (p *ProverChannel) SampleFieldElement() field.Element {
	return p.coin.sampleFieldElement()
}

func (p *ProverChannel) SampleFieldElements(n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = p.coin.sampleFieldElement()
	}
	return out
}

func (p *ProverChannel) SampleIndices(n, domainBits int) []int {
	return p.coin.sampleIndices(n, domainBits)
}

// PowChallengeSeed returns the current challenge seed for proof-of-work
// grinding (spec 4.7 step 11).
func (p *ProverChannel) PowChallengeSeed() [32]byte {
	return p.coin.powChallengeSeed()
}

// Proof returns the accumulated proof bytes.
func (p *ProverChannel) Proof() []byte {
	return p.proof
}

// VerifierChannel replays a prover's proof bytes, reproducing the prover's
// transcript state transition-by-transition.
type VerifierChannel struct {
	coin  coin
	proof []byte
	pos   int
}

// NewVerifierChannel seeds a verifier channel with the same seed the
// prover used, over the given proof bytes.
func NewVerifierChannel(seed []byte, proof []byte) *VerifierChannel {
	vc := &VerifierChannel{proof: proof}
	vc.coin.seed(seed)
	return vc
}

// ErrProofTooShort indicates the proof ran out of bytes before the
// verifier finished reading an expected message.
var ErrProofTooShort = fmt.Errorf("transcript: proof ended unexpectedly")

func (v *VerifierChannel) ReadBytes(n int) ([]byte, error) {
	if v.pos+n > len(v.proof) {
		return nil, ErrProofTooShort
	}
	data := v.proof[v.pos : v.pos+n]
	v.pos += n
	v.coin.absorb(data)
	return data, nil
}

func (v *VerifierChannel) ReadElement() (field.Element, error) {
	b, err := v.ReadBytes(32)
	if err != nil {
		return field.Element{}, err
	}
	var arr [32]byte
	copy(arr[:], b)
	return field.FromMontgomeryBytes(arr)
}

func (v *VerifierChannel) ReadElements(n int) ([]field.Element, error) {
	out := make([]field.Element, n)
	for i := range out {
		e, err := v.ReadElement()
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (v *VerifierChannel) ReadHash() (merkle.Hash, error) {
	b, err := v.ReadBytes(merkle.HashSize)
	if err != nil {
		return merkle.Hash{}, err
	}
	var h merkle.Hash
	copy(h[:], b)
	return h, nil
}

func (v *VerifierChannel) ReadHashes(n int) ([]merkle.Hash, error) {
	out := make([]merkle.Hash, n)
	for i := range out {
		h, err := v.ReadHash()
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

func (v *VerifierChannel) ReadNonce() (uint64, error) {
	b, err := v.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (v *VerifierChannel) SampleFieldElement() field.Element {
	return v.coin.sampleFieldElement()
}

func (v *VerifierChannel) SampleFieldElements(n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = v.coin.sampleFieldElement()
	}
	return out
}

func (v *VerifierChannel) SampleIndices(n, domainBits int) []int {
	return v.coin.sampleIndices(n, domainBits)
}

func (v *VerifierChannel) PowChallengeSeed() [32]byte {
	return v.coin.powChallengeSeed()
}

// AtEnd reports whether the proof byte string has been exactly consumed.
// The verifier must call this as its final check (spec 4.8: "the proof
// byte string is exactly consumed. Excess bytes -> ProofTooLong").
func (v *VerifierChannel) AtEnd() bool {
	return v.pos == len(v.proof)
}

// Remaining returns the number of unconsumed proof bytes.
func (v *VerifierChannel) Remaining() int {
	return len(v.proof) - v.pos
}
