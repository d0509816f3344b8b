package selection_test

import (
	"errors"
	"testing"

	"github.com/okian/azicorr/internal/domain/model"
	"github.com/okian/azicorr/internal/domain/selection"
	. "github.com/smartystreets/goconvey/convey"
)

func defaultBands() []selection.Band {
	return []selection.Band{
		{PID: model.PIDPhoton, PtLow: 5, PtHigh: 7},
		{PID: model.PIDPhoton, PtLow: 7, PtHigh: 9},
		{PID: model.PIDPhoton, PtLow: 9, PtHigh: 12},
		{PID: model.PIDPhoton, PtLow: 12, PtHigh: 15},
		{PID: model.PIDPi0, PtLow: 13, PtHigh: 20},
	}
}

func TestCutComposition(t *testing.T) {
	Convey("Given simple cuts", t, func() {
		hard := selection.PtAbove(5)
		central := selection.AbsEtaBelow(1)
		p := model.Particle{Pt: 6, Eta: -0.5}
		q := model.Particle{Pt: 6, Eta: 1.5}

		Convey("Then And requires every cut", func() {
			So(hard.And(central)(p), ShouldBeTrue)
			So(hard.And(central)(q), ShouldBeFalse)
		})

		Convey("Then Or requires any cut", func() {
			So(selection.PtAbove(10).Or(central)(p), ShouldBeTrue)
			So(selection.PtAbove(10).Or(central)(q), ShouldBeFalse)
		})

		Convey("Then Not inverts", func() {
			So(selection.Not(central)(q), ShouldBeTrue)
		})

		Convey("Then empty All accepts and empty Any rejects", func() {
			So(selection.All()(p), ShouldBeTrue)
			So(selection.Any()(p), ShouldBeFalse)
		})

		Convey("Then pt windows are half open", func() {
			in := selection.PtIn(5, 7)
			So(in(model.Particle{Pt: 5}), ShouldBeTrue)
			So(in(model.Particle{Pt: 7}), ShouldBeFalse)
		})
	})
}

func TestTriggerBands(t *testing.T) {
	Convey("Given the default trigger bands", t, func() {
		bands, err := selection.NewTriggerBands(defaultBands())
		So(err, ShouldBeNil)

		Convey("Then particles match the band of their species", func() {
			i, ok := bands.Match(model.Particle{PID: model.PIDPhoton, Pt: 8})
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 1)

			i, ok = bands.Match(model.Particle{PID: model.PIDPi0, Pt: 10})
			So(ok, ShouldBeFalse)
			So(i, ShouldEqual, -1)

			i, ok = bands.Match(model.Particle{PID: model.PIDPi0, Pt: 14})
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 4)
		})

		Convey("Then species are listed once in order", func() {
			So(bands.PIDs(), ShouldResemble, []int{model.PIDPhoton, model.PIDPi0})
		})
	})

	Convey("Given malformed bands", t, func() {
		_, err := selection.NewTriggerBands([]selection.Band{{PID: 22, PtLow: 7, PtHigh: 5}})
		So(errors.Is(err, selection.ErrInvalidSelection), ShouldBeTrue)

		_, err = selection.NewTriggerBands([]selection.Band{{PID: 22, PtLow: 5, PtHigh: 5}})
		So(errors.Is(err, selection.ErrInvalidSelection), ShouldBeTrue)

		_, err = selection.NewTriggerBands([]selection.Band{{PID: 22, PtLow: 5, PtHigh: 8}, {PID: 22, PtLow: 7, PtHigh: 9}})
		So(errors.Is(err, selection.ErrInvalidSelection), ShouldBeTrue)

		_, err = selection.NewTriggerBands(nil)
		So(errors.Is(err, selection.ErrInvalidSelection), ShouldBeTrue)
	})

	Convey("Given overlapping windows of different species", t, func() {
		_, err := selection.NewTriggerBands([]selection.Band{{PID: 22, PtLow: 12, PtHigh: 15}, {PID: 111, PtLow: 13, PtHigh: 20}})

		Convey("Then they are accepted", func() {
			So(err, ShouldBeNil)
		})
	})
}

func TestTriggerSelection(t *testing.T) {
	Convey("Given the trigger selection", t, func() {
		bands, err := selection.NewTriggerBands(defaultBands())
		So(err, ShouldBeNil)
		trig, err := selection.Trigger(bands, 1.0)
		So(err, ShouldBeNil)

		ev := &model.Event{Particles: []model.Particle{
			{PID: model.PIDPhoton, Pt: 6, Eta: 0.2},    // band 0
			{PID: model.PIDPi0, Pt: 15, Eta: -0.3},     // pi0 band
			{PID: model.PIDPi0, Pt: 8, Eta: 0},         // photon window but pi0
			{PID: model.PIDPhoton, Pt: 10, Eta: 1.2},   // outside eta
			{PID: 211, Pt: 10, Eta: 0, Charge: 1},      // wrong species
			{PID: model.PIDPhoton, Pt: 15, Eta: 0},     // above photon bands
			{PID: model.PIDPhoton, Pt: 11.5, Eta: 0.9}, // band 2
		}}

		Convey("When selecting", func() {
			got := trig.Select(ev)

			Convey("Then only qualifying particles come back, hardest first", func() {
				So(len(got), ShouldEqual, 3)
				So(got[0].Pt, ShouldEqual, 15)
				So(got[0].PID, ShouldEqual, model.PIDPi0)
				So(got[1].Pt, ShouldEqual, 11.5)
				So(got[2].Pt, ShouldEqual, 6)
			})

			Convey("And the event is left untouched", func() {
				So(ev.Particles[0].Pt, ShouldEqual, 6)
				So(len(ev.Particles), ShouldEqual, 7)
			})
		})

		Convey("When selecting twice", func() {
			So(trig.Select(ev), ShouldResemble, trig.Select(ev))
		})
	})

	Convey("Given an invalid eta cut", t, func() {
		bands, _ := selection.NewTriggerBands(defaultBands())
		_, err := selection.Trigger(bands, 0)
		So(errors.Is(err, selection.ErrInvalidSelection), ShouldBeTrue)
		_, err = selection.Trigger(nil, 1)
		So(errors.Is(err, selection.ErrInvalidSelection), ShouldBeTrue)
	})
}

func TestAssociatedSelection(t *testing.T) {
	Convey("Given the associated selection", t, func() {
		assoc, err := selection.Associated(1.2, 20, 1.0)
		So(err, ShouldBeNil)
		So(assoc.Name(), ShouldEqual, "associated")

		Convey("Then charged central particles inside the open pt window pass", func() {
			So(assoc.Accept(model.Particle{PID: 211, Pt: 2, Eta: 0.5, Charge: 1}), ShouldBeTrue)
			So(assoc.Accept(model.Particle{PID: -211, Pt: 19.9, Eta: -0.9, Charge: -1}), ShouldBeTrue)
		})

		Convey("Then neutral, forward or out-of-window particles fail", func() {
			So(assoc.Accept(model.Particle{PID: model.PIDPhoton, Pt: 2}), ShouldBeFalse)
			So(assoc.Accept(model.Particle{PID: 211, Pt: 2, Eta: 1.0, Charge: 1}), ShouldBeFalse)
			So(assoc.Accept(model.Particle{PID: 211, Pt: 1.2, Charge: 1}), ShouldBeFalse)
			So(assoc.Accept(model.Particle{PID: 211, Pt: 20, Charge: 1}), ShouldBeFalse)
		})

		Convey("Then equal-pt particles keep their source order", func() {
			ev := &model.Event{Particles: []model.Particle{
				{PID: 211, Pt: 3, Phi: 1, Charge: 1},
				{PID: -211, Pt: 3, Phi: 2, Charge: -1},
				{PID: 321, Pt: 5, Phi: 3, Charge: 1},
			}}
			got := assoc.Select(ev)
			So(len(got), ShouldEqual, 3)
			So(got[0].Phi, ShouldEqual, 3)
			So(got[1].Phi, ShouldEqual, 1)
			So(got[2].Phi, ShouldEqual, 2)
		})
	})

	Convey("Given an empty pt window", t, func() {
		_, err := selection.Associated(20, 1.2, 1)
		So(errors.Is(err, selection.ErrInvalidSelection), ShouldBeTrue)
	})
}

func TestParsePID(t *testing.T) {
	Convey("Given species names", t, func() {
		id, err := selection.ParsePID("gamma")
		So(err, ShouldBeNil)
		So(id, ShouldEqual, 22)

		id, err = selection.ParsePID(" Pi0 ")
		So(err, ShouldBeNil)
		So(id, ShouldEqual, 111)

		id, err = selection.ParsePID("221")
		So(err, ShouldBeNil)
		So(id, ShouldEqual, 221)

		_, err = selection.ParsePID("unicorn")
		So(errors.Is(err, selection.ErrUnknownParticle), ShouldBeTrue)

		Convey("Then names round-trip", func() {
			for _, name := range []string{"gamma", "pi0", "221"} {
				id, err := selection.ParsePID(name)
				So(err, ShouldBeNil)
				So(selection.PIDName(id), ShouldEqual, name)
			}
			So(selection.Band{PID: 111, PtLow: 13, PtHigh: 20}.String(), ShouldEqual, "pi0 [13,20) GeV")
		})
	})
}
