package globimap

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSyncSketch(t *testing.T) {
	Convey("Concurrent writers and readers", t, func() {
		ss := NewSyncSketch()
		So(errors.Is(ss.Increment([]byte("a")), ErrNotConfigured), ShouldBeTrue)
		So(ss.Configure(4, 4096), ShouldBeNil)
		So(ss.Depth(), ShouldEqual, 4)
		So(ss.Width(), ShouldEqual, 4096)

		const workers, per = 8, 500
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < per; i++ {
					_ = ss.Increment([]byte(fmt.Sprint("shared-", i%10)))
					_ = ss.Add([]byte(fmt.Sprint("own-", w)), 2)
					_, _ = ss.Estimate([]byte("shared-0"))
				}
			}(w)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			v, err := ss.Estimate([]byte(fmt.Sprint("shared-", i)))
			So(err, ShouldBeNil)
			So(v, ShouldBeGreaterThanOrEqualTo, workers*per/10)
		}
		for w := 0; w < workers; w++ {
			v, _ := ss.Estimate([]byte(fmt.Sprint("own-", w)))
			So(v, ShouldBeGreaterThanOrEqualTo, 2*per)
		}

		st, err := ss.Stats()
		So(err, ShouldBeNil)
		So(st.Sum, ShouldEqual, 4*uint64(workers*per*3))
	})

	Convey("Snapshot is a copy", t, func() {
		ss := NewSyncSketch(WithSeed(1))
		So(ss.Configure(2, 16), ShouldBeNil)
		So(ss.Add([]byte("a"), 3), ShouldBeNil)

		snap := ss.Snapshot()
		So(ss.Add([]byte("a"), 3), ShouldBeNil)
		v, _ := snap.Estimate([]byte("a"))
		So(v, ShouldEqual, 3)
		v, _ = ss.Estimate([]byte("a"))
		So(v, ShouldEqual, 6)
	})
}
