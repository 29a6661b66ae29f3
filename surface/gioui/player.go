package gioui

import (
	"image/color"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/io/event"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/midiplayer/midiplayer/surface"
	"golang.org/x/exp/shiny/materialdesign/icons"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type (
	// Player is the window of the player. It owns the Model while Main is
	// running.
	Player struct {
		Theme *material.Theme

		PlayBtn    widget.Clickable
		StopBtn    widget.Clickable
		RefreshBtn widget.Clickable
		AlertBtn   widget.Clickable
		Randomize  widget.Bool
		Speed      widget.Float
		Device     widget.Enum
		DeviceList widget.List

		playIcon    *widget.Icon
		stopIcon    *widget.Icon
		refreshIcon *widget.Icon
		printer     *message.Printer

		*surface.Model
	}

	C = layout.Context
	D = layout.Dimensions
)

var (
	panelInset = layout.UniformInset(unit.Dp(12))
	rowInset   = layout.Inset{Bottom: unit.Dp(8)}
	mutedColor = color.NRGBA{R: 0x70, G: 0x70, B: 0x70, A: 0xff}
)

func NewPlayer(model *surface.Model) *Player {
	p := &Player{
		Theme:       material.NewTheme(),
		playIcon:    mustIcon(icons.AVPlayArrow),
		stopIcon:    mustIcon(icons.AVStop),
		refreshIcon: mustIcon(icons.NavigationRefresh),
		printer:     message.NewPrinter(language.English),
		Model:       model,
	}
	p.Theme.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	p.DeviceList.Axis = layout.Vertical
	return p
}

// Main runs the window until it is closed, or until CloseModel is signaled.
// Messages posted to the Broker are handled between frames.
func (p *Player) Main() {
	w := new(app.Window)
	w.Option(app.Title("MIDI Player"), app.Size(unit.Dp(420), unit.Dp(520)))
	var ops op.Ops
	acks := make(chan struct{})
	events := make(chan event.Event)
	go func() {
		for {
			ev := w.Event()
			events <- ev
			<-acks
			if _, ok := ev.(app.DestroyEvent); ok {
				return
			}
		}
	}()
F:
	for {
		select {
		case e := <-p.Broker().ToModel:
			p.ProcessMsg(e)
			w.Invalidate()
		case <-p.Broker().CloseModel:
			w.Perform(system.ActionClose)
		case e := <-events:
			switch e := e.(type) {
			case app.DestroyEvent:
				acks <- struct{}{}
				break F
			case app.FrameEvent:
				gtx := app.NewContext(&ops, e)
				p.Layout(gtx)
				e.Frame(gtx.Ops)
			}
			acks <- struct{}{}
		}
	}
	close(p.Broker().FinishedModel)
}

func (p *Player) Layout(gtx C) D {
	p.update(gtx)
	_, alerting := p.Alerts().Front()
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx C) D {
			if alerting {
				gtx = gtx.Disabled()
			}
			return panelInset.Layout(gtx, p.layoutControls)
		}),
		layout.Stacked(func(gtx C) D {
			if !alerting {
				return D{}
			}
			return p.layoutAlert(gtx)
		}),
	)
}

// update feeds the widget events of the previous frame to the model and
// then mirrors the model state back to the widgets, so that changes made over
// OSC show up too.
func (p *Player) update(gtx C) {
	for p.PlayBtn.Clicked(gtx) {
		p.Play().Do()
	}
	for p.StopBtn.Clicked(gtx) {
		p.Stop().Do()
	}
	for p.RefreshBtn.Clicked(gtx) {
		p.RefreshDevices().Do()
	}
	for p.AlertBtn.Clicked(gtx) {
		p.DismissAlert().Do()
	}
	if p.Randomize.Update(gtx) {
		p.RandomizeNotes().Bool().Set(p.Randomize.Value)
	}
	if p.Speed.Update(gtx) {
		p.Model.Speed().Float().SetNormalized(float64(p.Speed.Value))
	}
	if p.Device.Update(gtx) {
		p.SelectDevice(p.Device.Value)
	}
	p.Randomize.Value = p.RandomizeNotes().Value()
	if !p.Speed.Dragging() {
		p.Speed.Value = float32(p.Model.Speed().Float().Normalized())
	}
	p.Device.Value = p.DeviceName()
}

func (p *Player) layoutControls(gtx C) D {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(p.row(p.layoutTransport)),
		layout.Rigid(p.row(func(gtx C) D {
			return p.enabled(gtx, p.RandomizeNotes().Enabled(), material.CheckBox(p.Theme, &p.Randomize, "Randomize notes").Layout)
		})),
		layout.Rigid(p.row(material.Body1(p.Theme, p.printer.Sprintf("Speed %.2f×", p.Model.Speed().Value())).Layout)),
		layout.Rigid(p.row(material.Slider(p.Theme, &p.Speed).Layout)),
		layout.Rigid(p.row(p.layoutDeviceHeader)),
		layout.Flexed(1, p.layoutDevices),
		layout.Rigid(p.layoutStatus),
	)
}

func (p *Player) layoutTransport(gtx C) D {
	play := material.IconButton(p.Theme, &p.PlayBtn, p.playIcon, "Play")
	stop := material.IconButton(p.Theme, &p.StopBtn, p.stopIcon, "Stop")
	return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
		layout.Rigid(func(gtx C) D { return p.enabled(gtx, p.Play().Enabled(), play.Layout) }),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Rigid(func(gtx C) D { return p.enabled(gtx, p.Stop().Enabled(), stop.Layout) }),
		layout.Rigid(layout.Spacer{Width: unit.Dp(12)}.Layout),
		layout.Flexed(1, func(gtx C) D {
			name := p.NowPlaying()
			if name == "" {
				name = "Stopped"
			}
			return material.H6(p.Theme, name).Layout(gtx)
		}),
	)
}

func (p *Player) layoutDeviceHeader(gtx C) D {
	refresh := material.IconButton(p.Theme, &p.RefreshBtn, p.refreshIcon, "Refresh devices")
	refresh.Size = unit.Dp(18)
	refresh.Inset = layout.UniformInset(unit.Dp(6))
	return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
		layout.Flexed(1, material.Body1(p.Theme, "MIDI output").Layout),
		layout.Rigid(refresh.Layout),
	)
}

func (p *Player) layoutDevices(gtx C) D {
	devices := p.Devices()
	if len(devices) == 0 {
		l := material.Body2(p.Theme, "No devices")
		l.Color = mutedColor
		return l.Layout(gtx)
	}
	return material.List(p.Theme, &p.DeviceList).Layout(gtx, len(devices), func(gtx C, i int) D {
		return material.RadioButton(p.Theme, &p.Device, devices[i], devices[i]).Layout(gtx)
	})
}

func (p *Player) layoutStatus(gtx C) D {
	l := material.Caption(p.Theme, p.Alerts().Status())
	l.Color = mutedColor
	return l.Layout(gtx)
}

func (p *Player) row(w layout.Widget) layout.Widget {
	return func(gtx C) D { return rowInset.Layout(gtx, w) }
}

func (p *Player) enabled(gtx C, enabled bool, w layout.Widget) D {
	if !enabled {
		gtx = gtx.Disabled()
	}
	return w(gtx)
}

func mustIcon(data []byte) *widget.Icon {
	ic, err := widget.NewIcon(data)
	if err != nil {
		panic(err)
	}
	return ic
}
