package idcard

import (
	"bytes"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	CardWidth  = 856
	CardHeight = 540
	margin     = 40
	dateLayout = "2006-01-02"
)

var accents = map[CardType]string{
	StudentCard: "#2B6CB0",
	ParentCard:  "#2F855A",
	TeacherCard: "#9C4221",
}

// Renderer draws cards as PNG images.
type Renderer struct {
	title   font.Face
	heading font.Face
	body    font.Face
}

func NewRenderer() (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "parsing regular font")
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "parsing bold font")
	}
	face := func(f *truetype.Font, size float64) font.Face {
		return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	}
	return &Renderer{
		title:   face(bold, 40),
		heading: face(bold, 30),
		body:    face(regular, 24),
	}, nil
}

func (r *Renderer) Render(card IDCard) ([]byte, error) {
	accent, ok := accents[card.CardType]
	if !ok {
		return nil, errors.Errorf("unknown card type %q", card.CardType)
	}

	dc := gg.NewContext(CardWidth, CardHeight)
	dc.SetHexColor("#FFFFFF")
	dc.Clear()

	// header band
	dc.SetHexColor(accent)
	dc.DrawRectangle(0, 0, CardWidth, 120)
	dc.Fill()

	dc.SetHexColor("#FFFFFF")
	dc.SetFontFace(r.title)
	school := card.SchoolName
	if school == "" {
		school = "Homeschool"
	}
	dc.DrawStringAnchored(school, margin, 60, 0, 0.5)
	dc.SetFontFace(r.body)
	dc.DrawStringAnchored(strings.ToUpper(string(card.CardType))+" ID", CardWidth-margin, 60, 1, 0.5)

	// photo placeholder
	dc.SetHexColor("#E2E8F0")
	dc.DrawRoundedRectangle(margin, 160, 220, 280, 12)
	dc.Fill()
	dc.SetHexColor(accent)
	dc.SetFontFace(r.title)
	dc.DrawStringAnchored(initials(card.FullName), margin+110, 300, 0.5, 0.5)

	x := float64(margin + 260)
	dc.SetHexColor("#1A202C")
	dc.SetFontFace(r.heading)
	dc.DrawString(card.FullName, x, 200)

	dc.SetFontFace(r.body)
	lines := []string{
		"Card No: " + card.CardNumber,
		"Issued: " + card.IssueDate.Format(dateLayout),
		"Expires: " + card.ExpiryDate.Format(dateLayout),
	}
	for i, line := range lines {
		dc.DrawString(line, x, 260+float64(i)*44)
	}

	// footer
	dc.SetHexColor(accent)
	dc.SetLineWidth(6)
	dc.DrawLine(0, CardHeight-3, CardWidth, CardHeight-3)
	dc.Stroke()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(err, "encoding png")
	}
	return buf.Bytes(), nil
}

func initials(name string) string {
	var res []rune
	for _, part := range strings.Fields(name) {
		res = append(res, []rune(strings.ToUpper(part))[0])
		if len(res) == 2 {
			break
		}
	}
	return string(res)
}
