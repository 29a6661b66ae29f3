package gioui

import (
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"
	"github.com/midiplayer/midiplayer/surface"
)

var (
	scrimColor   = color.NRGBA{A: 0x80}
	dialogColor  = color.NRGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	warningColor = color.NRGBA{R: 0xb0, G: 0x70, B: 0x00, A: 0xff}
	errorColor   = color.NRGBA{R: 0xb0, G: 0x20, B: 0x20, A: 0xff}
	dialogInset  = layout.UniformInset(unit.Dp(16))
)

// layoutAlert shows the oldest pending alert as a modal dialog.
func (p *Player) layoutAlert(gtx C) D {
	alert, _ := p.Alerts().Front()
	paint.FillShape(gtx.Ops, scrimColor, clip.Rect{Max: gtx.Constraints.Max}.Op())
	gtx.Constraints.Min = gtx.Constraints.Max
	return layout.Center.Layout(gtx, func(gtx C) D {
		gtx.Constraints.Min.X = 0
		gtx.Constraints.Min.Y = 0
		gtx.Constraints.Max.X = min(gtx.Constraints.Max.X, gtx.Dp(320))
		return layout.Stack{}.Layout(gtx,
			layout.Expanded(func(gtx C) D {
				paint.FillShape(gtx.Ops, dialogColor, clip.UniformRRect(image.Rectangle{Max: gtx.Constraints.Min}, gtx.Dp(4)).Op(gtx.Ops))
				return D{Size: gtx.Constraints.Min}
			}),
			layout.Stacked(func(gtx C) D {
				return dialogInset.Layout(gtx, func(gtx C) D {
					title := material.H6(p.Theme, alert.Priority.String())
					if alert.Priority == surface.Error {
						title.Color = errorColor
					} else {
						title.Color = warningColor
					}
					return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
						layout.Rigid(p.row(title.Layout)),
						layout.Rigid(p.row(material.Body1(p.Theme, alert.Message).Layout)),
						layout.Rigid(func(gtx C) D {
							return layout.E.Layout(gtx, material.Button(p.Theme, &p.AlertBtn, "OK").Layout)
						}),
					)
				})
			}),
		)
	})
}
