package runtime

import "crypto/rand"

// randSizeLog is RANDSIZL in the reference ISAAC implementation: the
// generator produces 2^randSizeLog words per mix.
const randSizeLog = 8
const randSize = 1 << randSizeLog // 256

// PRNG implements ISAAC (indirection, shift, accumulate, add, and count), a
// cryptographically secure pseudorandom generator designed by Robert J.
// Jenkins Jr. in 1993 (https://www.burtleburtle.net/bob/rand/isaac.html).
// It seeds itself from the OS entropy source; callers never need to seed it
// explicitly.
type PRNG struct {
	cnt     uint32
	rsl     [randSize]uint32
	mem     [randSize]uint32
	a, b, c uint32
}

// NewPRNG seeds a fresh ISAAC generator from crypto/rand, the Go analogue of
// the original's RAND_priv_bytes seed.
func NewPRNG() *PRNG {
	p := &PRNG{}
	var seed [randSize*2*4 + 12]byte
	_, _ = rand.Read(seed[:])
	off := 0
	read32 := func() uint32 {
		v := uint32(seed[off]) | uint32(seed[off+1])<<8 | uint32(seed[off+2])<<16 | uint32(seed[off+3])<<24
		off += 4
		return v
	}
	for i := range p.rsl {
		p.rsl[i] = read32()
	}
	for i := range p.mem {
		p.mem[i] = read32()
	}
	p.a = read32()
	p.b = read32()
	p.c = read32()
	p.cnt = randSize
	return p
}

func ind(mm *[randSize]uint32, x uint32) uint32 {
	return mm[(x>>2)&(randSize-1)]
}

// isaac refills rsl and mem for the next randSize outputs.
func (p *PRNG) isaac() {
	p.c++
	a, b := p.a, p.b+p.c

	mix := [4]func(uint32) uint32{
		func(x uint32) uint32 { return x << 13 },
		func(x uint32) uint32 { return x >> 6 },
		func(x uint32) uint32 { return x << 2 },
		func(x uint32) uint32 { return x >> 16 },
	}

	half := randSize / 2
	step := func(i, i2 int, f func(uint32) uint32) {
		x := p.mem[i]
		a = (a ^ f(a)) + p.mem[i2]
		y := ind(&p.mem, x) + a + b
		p.mem[i] = y
		b = ind(&p.mem, y>>randSizeLog) + x
		p.rsl[i] = b
	}

	for i, i2 := 0, half; i < half; i, i2 = i+1, i2+1 {
		step(i, i2, mix[i%4])
	}
	for i, i2 := half, 0; i < randSize; i, i2 = i+1, i2+1 {
		step(i, i2, mix[i%4])
	}

	p.b, p.a = b, a
	p.cnt = randSize
}

// Bump returns the next 32-bit output.
func (p *PRNG) Bump() uint32 {
	if p.cnt == 0 {
		p.isaac()
	}
	p.cnt--
	return p.rsl[p.cnt]
}

// Uint32 is an alias for Bump, matching the engine's operator() contract.
func (p *PRNG) Uint32() uint32 { return p.Bump() }

// Float64 returns a random value in [0, 1) built from 53 bits of entropy,
// the precision a float64 mantissa can hold exactly.
func (p *PRNG) Float64() float64 {
	hi := uint64(p.Bump())
	lo := uint64(p.Bump())
	bits := (hi<<32 | lo) >> 11
	return float64(bits) / float64(uint64(1)<<53)
}
