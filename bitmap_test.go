package globimap

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBitmap(t *testing.T) {
	Convey("Configure", t, func() {
		b := NewBitmap()
		So(b.K(), ShouldEqual, 0)
		So(b.Size(), ShouldEqual, 0)
		So(errors.Is(b.Put(1, 2), ErrNotConfigured), ShouldBeTrue)
		_, err := b.Get(1, 2)
		So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
		_, err = b.Rasterize(0, 0, 2, 2)
		So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)

		So(b.Configure(12, 20), ShouldBeNil)
		So(b.K(), ShouldEqual, 12)
		So(b.Size(), ShouldEqual, 1<<20)

		So(errors.Is(b.Configure(0, 10), ErrInvalidConfiguration), ShouldBeTrue)
		So(errors.Is(b.Configure(4, MaxLogSize+1), ErrInvalidConfiguration), ShouldBeTrue)
		So(b.K(), ShouldEqual, 12)
		So(b.Size(), ShouldEqual, 1<<20)
	})

	Convey("Points that were put are always found", t, func() {
		b := NewBitmap()
		So(b.Configure(4, 16), ShouldBeNil)
		for x := uint64(0); x < 50; x++ {
			So(b.Put(x, 2*x+1), ShouldBeNil)
		}
		for x := uint64(0); x < 50; x++ {
			ok, err := b.Get(x, 2*x+1)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		}
		ones, foz := b.Stats()
		So(ones, ShouldBeGreaterThan, 0)
		So(ones, ShouldBeLessThanOrEqualTo, 200)
		So(foz, ShouldBeGreaterThan, 0.99)
	})

	Convey("Rasterize, enforce and correct", t, func() {
		// A tiny bitmap so that false positives are guaranteed.
		b := NewBitmap()
		So(b.Configure(1, 2), ShouldBeNil)

		mask := make([][]bool, 8)
		for i := range mask {
			mask[i] = make([]bool, 8)
		}
		mask[1][1] = true
		mask[5][6] = true
		So(b.Map(mask, 100, 200), ShouldBeNil)

		r, err := b.Rasterize(100, 200, 8, 8)
		So(err, ShouldBeNil)
		So(r.Data, ShouldHaveLength, 64)
		So(r.At(1, 1), ShouldEqual, 1)
		So(r.At(5, 6), ShouldEqual, 1)

		positives := 0
		for _, v := range r.Data {
			if v == 1 {
				positives++
			}
		}
		So(positives, ShouldBeGreaterThan, 2)

		n, err := b.Enforce(mask, 100, 200)
		So(err, ShouldBeNil)
		So(n, ShouldEqual, positives-2)
		So(b.Corrections(), ShouldEqual, n)

		b.Correct(r)
		for i := 0; i < 8; i++ {
			for j := 0; j < 8; j++ {
				want := 0.0
				if mask[i][j] {
					want = 1
				}
				So(r.At(i, j), ShouldEqual, want)
			}
		}

		// Corrections outside the raster are ignored.
		b.AddError(99, 200)
		b.AddError(100, 208)
		sub, err := b.Rasterize(101, 201, 1, 1)
		So(err, ShouldBeNil)
		So(b.Correct(sub).At(0, 0), ShouldEqual, 1)
	})

	Convey("Corrections work on a zero Bitmap", t, func() {
		var b Bitmap
		So(func() { b.AddError(3, 4) }, ShouldNotPanic)
		So(b.Corrections(), ShouldEqual, 1)
		So(b.Correct(nil), ShouldBeNil)

		r := &Raster{X: 3, Y: 4, Rows: 1, Cols: 1, Data: []float64{1}}
		So(b.Correct(r).At(0, 0), ShouldEqual, 0)
	})

	Convey("Buffers round trip", t, func() {
		b := NewBitmap()
		So(b.Configure(3, 10), ShouldBeNil)
		for x := uint64(0); x < 40; x++ {
			So(b.Put(x, x*x), ShouldBeNil)
		}
		buf := b.Buffer()
		So(buf, ShouldHaveLength, 128)

		ones, _ := b.Stats()
		set := 0
		for i := 0; i < len(buf)*8; i++ {
			if buf[i/8]&(1<<(i%8)) != 0 {
				set++
				So(b.bits.Test(uint(i)), ShouldBeTrue)
			}
		}
		So(set, ShouldEqual, ones)

		clone := NewBitmap()
		So(clone.Configure(3, 10), ShouldBeNil)
		So(clone.LoadBuffer(buf), ShouldBeNil)
		So(clone.bits.Equal(b.bits), ShouldBeTrue)
		for x := uint64(0); x < 40; x++ {
			ok, _ := clone.Get(x, x*x)
			So(ok, ShouldBeTrue)
		}

		So(errors.Is(clone.LoadBuffer(buf[1:]), ErrBufferSize), ShouldBeTrue)
		So(errors.Is(NewBitmap().LoadBuffer(buf), ErrNotConfigured), ShouldBeTrue)
	})

	Convey("Buffers of less than a byte", t, func() {
		b := NewBitmap()
		So(b.Configure(2, 2), ShouldBeNil)
		So(b.Put(7, 7), ShouldBeNil)
		buf := b.Buffer()
		So(buf, ShouldHaveLength, 1)
		So(buf[0]&0xf0, ShouldEqual, 0)

		clone := NewBitmap()
		So(clone.Configure(2, 2), ShouldBeNil)
		So(clone.LoadBuffer([]byte{0xff}), ShouldBeNil)
		ones, foz := clone.Stats()
		So(ones, ShouldEqual, 4)
		So(foz, ShouldEqual, 0)
	})

	Convey("Summary and Clear", t, func() {
		b := NewBitmap()
		_, err := b.Summary()
		So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)

		So(b.Configure(2, 13), ShouldBeNil)
		So(b.Put(1, 1), ShouldBeNil)
		b.AddError(2, 2)

		js, err := b.Summary()
		So(err, ShouldBeNil)
		var got bitmapSummary
		So(json.Unmarshal([]byte(js), &got), ShouldBeNil)
		So(got.K, ShouldEqual, 2)
		So(got.LogSize, ShouldEqual, 13)
		So(got.StorageB, ShouldEqual, 1024)
		So(got.StorageKB, ShouldEqual, 1)
		So(got.ECI, ShouldEqual, 1)
		So(got.Ones, ShouldBeBetweenOrEqual, 1, 2)

		b.Clear()
		ones, foz := b.Stats()
		So(ones, ShouldEqual, 0)
		So(foz, ShouldEqual, 1.0)
		So(b.Corrections(), ShouldEqual, 0)
		So(b.K(), ShouldEqual, 2)
		ok, _ := b.Get(1, 1)
		So(ok, ShouldBeFalse)
	})
}
