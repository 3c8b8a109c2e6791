package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"lokitool/internal/compress"
	"lokitool/internal/image/bootimg"
)

const previewSize = 4096

type segInfo struct {
	entry   bootimg.Entry
	codec   string
	preview []byte
}

type inspector struct {
	app    *tview.Application
	pages  *tview.Pages
	grid   *tview.Grid
	header *tview.TextView
	left   *tview.TextView
	right  *tview.TextView
	footer *tview.TextView

	path   string
	format string
	hdr    *bootimg.Header
	segs   []segInfo
	index  int
}

// Run reads the image up front and drives the UI from memory; the
// stream is not touched after Run returns to the event loop.
func Run(path string, r *bootimg.Reader) error {
	hdr, err := r.ReadHeader()
	if err != nil {
		return err
	}

	ins := &inspector{
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		grid:   tview.NewGrid(),
		header: tview.NewTextView(),
		left:   tview.NewTextView(),
		right:  tview.NewTextView(),
		footer: tview.NewTextView(),
		path:   path,
		format: r.Format(),
		hdr:    hdr,
	}

	for {
		e, err := r.ReadEntry()
		if err != nil {
			break
		}
		si := segInfo{entry: *e}
		n := e.Size
		if n > previewSize {
			n = previewSize
		}
		buf := make([]byte, n)
		if m, err := r.ReadData(buf); err == nil || err == io.EOF {
			si.preview = buf[:m]
			si.codec = compress.Detect(si.preview)
		}
		ins.segs = append(ins.segs, si)
	}

	ins.style()
	ins.layout()
	ins.bindKeys()
	ins.drawAll()

	ins.pages.AddAndSwitchToPage("main", ins.grid, true)
	ins.app.SetRoot(ins.pages, true)
	ins.app.SetFocus(ins.left)
	return ins.app.Run()
}

func (ins *inspector) style() {
	tview.Styles.PrimitiveBackgroundColor = tcell.ColorNavy
	tview.Styles.ContrastBackgroundColor = tcell.ColorBlue
	tview.Styles.BorderColor = tcell.ColorSkyblue
	tview.Styles.PrimaryTextColor = tcell.ColorWhite

	ins.header.SetBorder(true)
	ins.header.SetDynamicColors(true)
	ins.header.SetTitle(" lokitool inspector ")
	ins.header.SetTitleColor(tcell.ColorSkyblue)

	ins.footer.SetBorder(true)
	ins.footer.SetDynamicColors(true)
	fmt.Fprint(ins.footer, ins.footerText())

	for _, tv := range []*tview.TextView{ins.left, ins.right} {
		tv.SetBorder(true)
		tv.SetTitleAlign(tview.AlignLeft)
		tv.SetBackgroundColor(tcell.ColorBlue)
		tv.SetDynamicColors(true)
	}
	ins.left.SetTitle(" segments ")
	ins.right.SetTitle(" detail ")
}

func (ins *inspector) footerText() string {
	lbl := func(fn, t string) string { return fmt.Sprintf("[black:white] %s [-:-:-] [yellow]%s[-]", fn, t) }
	return strings.Join([]string{
		lbl("Up/Dn", "Select"),
		lbl("Enter", "Hex"),
		lbl("F10", "Quit"),
	}, "  ")
}

func (ins *inspector) layout() {
	ins.grid.SetRows(3, 0, 2).SetColumns(30, 0).SetBorders(false)
	ins.grid.AddItem(ins.header, 0, 0, 1, 2, 0, 0, false)
	ins.grid.AddItem(ins.left, 1, 0, 1, 1, 0, 0, true)
	ins.grid.AddItem(ins.right, 1, 1, 1, 1, 0, 0, false)
	ins.grid.AddItem(ins.footer, 2, 0, 1, 2, 0, 0, false)
}

func (ins *inspector) bindKeys() {
	ins.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		switch ev.Key() {
		case tcell.KeyUp:
			ins.move(-1)
			return nil
		case tcell.KeyDown:
			ins.move(+1)
			return nil
		case tcell.KeyEnter:
			ins.drawDetail()
			return nil
		case tcell.KeyF10, tcell.KeyEsc:
			ins.app.Stop()
			return nil
		}
		if ev.Rune() == 'q' {
			ins.app.Stop()
			return nil
		}
		return ev
	})
}

func (ins *inspector) move(d int) {
	// Row 0 is the header pseudo-entry.
	max := len(ins.segs) + 1
	i := ins.index + d
	if i < 0 {
		i = 0
	}
	if i >= max {
		i = max - 1
	}
	ins.index = i
	ins.drawAll()
}

func (ins *inspector) drawAll() {
	ins.drawHeader()
	ins.drawList()
	ins.drawDetail()
}

func (ins *inspector) drawHeader() {
	ins.header.Clear()
	fmt.Fprintf(ins.header, "[yellow]FILE[-]: [white]%s[-]   [yellow]FORMAT[-]: [white]%s[-]",
		ins.path, ins.format)
}

func (ins *inspector) drawList() {
	ins.left.Clear()
	line := func(i int, s string) {
		if i == ins.index {
			fmt.Fprintf(ins.left, "[black:teal]%s[-:-:-]\n", s)
		} else {
			fmt.Fprintf(ins.left, "%s\n", s)
		}
	}
	line(0, fmt.Sprintf("%-12s %14s", "header", ""))
	for i, s := range ins.segs {
		line(i+1, fmt.Sprintf("%-12s %8d bytes", s.entry.Type, s.entry.Size))
	}
}

func (ins *inspector) drawDetail() {
	ins.right.Clear()
	if ins.index == 0 {
		h := ins.hdr
		fmt.Fprintf(ins.right, "board      %q\n", h.BoardName)
		fmt.Fprintf(ins.right, "cmdline    %q\n", h.KernelCmdline)
		fmt.Fprintf(ins.right, "page size  %d\n", h.PageSize)
		fmt.Fprintf(ins.right, "kernel     0x%08x\n", h.KernelAddr)
		fmt.Fprintf(ins.right, "ramdisk    0x%08x\n", h.RamdiskAddr)
		fmt.Fprintf(ins.right, "second     0x%08x\n", h.SecondAddr)
		fmt.Fprintf(ins.right, "tags       0x%08x\n", h.TagsAddr)
		return
	}
	s := ins.segs[ins.index-1]
	fmt.Fprintf(ins.right, "offset 0x%x  size %d  codec %s\n\n", s.entry.Offset, s.entry.Size, s.codec)
	fmt.Fprint(ins.right, hexDump(s.preview, s.entry.Offset))
}

func hexDump(p []byte, base uint64) string {
	var b strings.Builder
	for i := 0; i < len(p); i += 16 {
		end := i + 16
		if end > len(p) {
			end = len(p)
		}
		row := p[i:end]
		fmt.Fprintf(&b, "%08x  ", base+uint64(i))
		for j := 0; j < 16; j++ {
			if j < len(row) {
				fmt.Fprintf(&b, "%02x ", row[j])
			} else {
				b.WriteString("   ")
			}
			if j == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(" |")
		for _, c := range row {
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			b.WriteByte(c)
		}
		b.WriteString("|\n")
	}
	return b.String()
}
