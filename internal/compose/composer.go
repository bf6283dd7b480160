// Package compose maps an analyzed comp packet onto the HTML document that
// the renderer prints. Composition is deterministic: the same packet always
// produces byte-identical markup.
package compose

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"time"

	"compsbot/internal/comps"
	"compsbot/internal/domain"
)

//go:embed templates/packet.html
var templatesFS embed.FS

var funcMap = template.FuncMap{
	"comma": comps.Comma,
	"usd": func(n int) string {
		return "$" + comps.Comma(n)
	},
	"usdf": func(f float64) string {
		return "$" + comps.Comma(int(math.Round(f)))
	},
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"yearOrDash": func(y int) string {
		if y == 0 {
			return "—"
		}
		return fmt.Sprintf("%d", y)
	},
	"titleCase": titleCase,
}

// Composer turns a domain.Packet into the packet HTML document.
type Composer struct {
	tpl *template.Template
}

// New parses the embedded packet template.
func New() (*Composer, error) {
	tpl, err := template.New("packet.html").Funcs(funcMap).ParseFS(templatesFS, "templates/packet.html")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrComposition, err)
	}
	return &Composer{tpl: tpl}, nil
}

// Compose executes the template over the packet. All user-supplied text goes
// through html/template's contextual escaping.
func (c *Composer) Compose(p domain.Packet) (string, error) {
	if len(p.Comps) == 0 {
		return "", fmt.Errorf("%w: packet has no comps", domain.ErrComposition)
	}
	if len(p.Valuation.MAORows) == 0 {
		return "", fmt.Errorf("%w: packet has no MAO tiers", domain.ErrComposition)
	}
	for _, cp := range p.Comps {
		if cp.PricePerSqft <= 0 {
			return "", fmt.Errorf("%w: comp %q has no price-per-sqft basis", domain.ErrComposition, cp.Address)
		}
	}

	var buf bytes.Buffer
	if err := c.tpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrComposition, err)
	}
	return buf.String(), nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
