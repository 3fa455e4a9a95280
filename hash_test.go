package globimap

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMultihash(t *testing.T) {
	Convey("FNV-1", t, func() {
		// Test cases taken from hash/fnv.
		golden := map[string]uint64{
			"":    0xcbf29ce484222325,
			"a":   0xaf63bd4c8601b7be,
			"ab":  0x08326707b4eb37b8,
			"abc": 0xd8dcca186bafadcb,
		}
		for k, v := range golden {
			So(v, ShouldEqual, multihash([]byte(k)))
		}
	})
}

func TestHash(t *testing.T) {
	all := []Hash{Murmur3, SipHash, XXHash, Metro, FNV}

	Convey("Names round trip", t, func() {
		for _, h := range all {
			parsed, err := ParseHash(h.String())
			So(err, ShouldBeNil)
			So(parsed, ShouldEqual, h)
		}
		h, err := ParseHash("")
		So(err, ShouldBeNil)
		So(h, ShouldEqual, Murmur3)
		h, err = ParseHash("XXHash")
		So(err, ShouldBeNil)
		So(h, ShouldEqual, XXHash)

		_, err = ParseHash("crc32")
		So(err, ShouldNotBeNil)
		So(Hash(99).String(), ShouldEqual, "Hash(99)")
	})

	Convey("Row seeds are stable and distinct", t, func() {
		a := rowSeeds(H1, 16)
		So(a, ShouldResemble, rowSeeds(H1, 16))
		So(rowSeeds(H1, 4), ShouldResemble, a[:4])

		seen := map[uint64]bool{}
		for _, s := range a {
			So(seen[s], ShouldBeFalse)
			seen[s] = true
		}
	})

	Convey("Every family depends on the seed and is deterministic", t, func() {
		key := []byte("globimap")
		for _, h := range all {
			So(h.sum(key, 1), ShouldEqual, h.sum(key, 1))
			So(h.sum(key, 1), ShouldNotEqual, h.sum(key, 2))
			So(h.sum(key, 1), ShouldNotEqual, h.sum([]byte("globimaq"), 1))
		}
	})

	Convey("Point hashes depend on both coordinates", t, func() {
		a1, a2 := pointHash(1, 2)
		b1, b2 := pointHash(2, 1)
		So(a1 == b1 && a2 == b2, ShouldBeFalse)
		c1, c2 := pointHash(1, 2)
		So(c1, ShouldEqual, a1)
		So(c2, ShouldEqual, a2)
	})
}
