package centrality_test

import (
	"errors"
	"testing"

	"github.com/okian/azicorr/internal/domain/centrality"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewBinning(t *testing.T) {
	Convey("Given centrality ranges", t, func() {
		Convey("When they are disjoint and ordered", func() {
			b, err := centrality.NewBinning([]centrality.Range{{Low: 0, High: 20}, {Low: 20, High: 40}, {Low: 40, High: 60}})

			Convey("Then the binning is built with configuration indices", func() {
				So(err, ShouldBeNil)
				So(b.Len(), ShouldEqual, 3)
				So(b.Bins()[2], ShouldResemble, centrality.Bin{Index: 2, Range: centrality.Range{Low: 40, High: 60}})
			})
		})

		Convey("When they are disjoint but configured out of order", func() {
			b, err := centrality.NewBinning([]centrality.Range{{Low: 50, High: 80}, {Low: 10, High: 30}})

			Convey("Then they are accepted and keep their configured index", func() {
				So(err, ShouldBeNil)
				bin, ok := b.Lookup(15)
				So(ok, ShouldBeTrue)
				So(bin.Index, ShouldEqual, 1)
			})
		})

		Convey("When a range is inverted", func() {
			_, err := centrality.NewBinning([]centrality.Range{{Low: 40, High: 20}})

			Convey("Then construction fails", func() {
				So(errors.Is(err, centrality.ErrInvalidBinning), ShouldBeTrue)
			})
		})

		Convey("When a range is empty", func() {
			_, err := centrality.NewBinning([]centrality.Range{{Low: 20, High: 20}})
			So(errors.Is(err, centrality.ErrInvalidBinning), ShouldBeTrue)
		})

		Convey("When ranges overlap", func() {
			_, err := centrality.NewBinning([]centrality.Range{{Low: 0, High: 30}, {Low: 20, High: 40}})

			Convey("Then construction fails", func() {
				So(errors.Is(err, centrality.ErrInvalidBinning), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "overlaps")
			})
		})

		Convey("When a range leaves the percentile domain", func() {
			_, err := centrality.NewBinning([]centrality.Range{{Low: -5, High: 20}})
			So(errors.Is(err, centrality.ErrInvalidBinning), ShouldBeTrue)

			_, err = centrality.NewBinning([]centrality.Range{{Low: 90, High: 101}})
			So(errors.Is(err, centrality.ErrInvalidBinning), ShouldBeTrue)
		})

		Convey("When no ranges are given", func() {
			_, err := centrality.NewBinning(nil)
			So(errors.Is(err, centrality.ErrInvalidBinning), ShouldBeTrue)
		})
	})
}

func TestBinningLookup(t *testing.T) {
	Convey("Given bins [0,20) [20,40) [40,60)", t, func() {
		b, err := centrality.NewBinning([]centrality.Range{{Low: 0, High: 20}, {Low: 20, High: 40}, {Low: 40, High: 60}})
		So(err, ShouldBeNil)

		Convey("Then lower edges are inclusive and upper edges exclusive", func() {
			bin, ok := b.Lookup(0)
			So(ok, ShouldBeTrue)
			So(bin.Index, ShouldEqual, 0)

			bin, ok = b.Lookup(20)
			So(ok, ShouldBeTrue)
			So(bin.Index, ShouldEqual, 1)

			bin, ok = b.Lookup(59.999)
			So(ok, ShouldBeTrue)
			So(bin.Index, ShouldEqual, 2)
		})

		Convey("Then values outside every bin are not matched", func() {
			_, ok := b.Lookup(60)
			So(ok, ShouldBeFalse)
			_, ok = b.Lookup(75)
			So(ok, ShouldBeFalse)
		})

		Convey("Then invalid percentiles are not matched", func() {
			_, ok := b.Lookup(centrality.NotCalibrated)
			So(ok, ShouldBeFalse)
			_, ok = b.Lookup(100)
			So(ok, ShouldBeFalse)
		})

		Convey("Then each lookup depends only on its argument", func() {
			_, _ = b.Lookup(30)
			_, ok := b.Lookup(80)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestValid(t *testing.T) {
	Convey("Given percentile values", t, func() {
		So(centrality.Valid(0), ShouldBeTrue)
		So(centrality.Valid(99.9), ShouldBeTrue)
		So(centrality.Valid(100), ShouldBeFalse)
		So(centrality.Valid(-1), ShouldBeFalse)
	})
}
