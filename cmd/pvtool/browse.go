package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/pvdata/bitset"
	"github.com/wippyai/pvdata/capture"
	"github.com/wippyai/pvdata/codec"
	"github.com/wippyai/pvdata/pvjson"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	touchedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxHexBytes bounds the encoding preview.
const maxHexBytes = 48

type browseState int

const (
	stateSelect browseState = iota
	stateEdit
)

type browseModel struct {
	err      error
	tree     *value.Tree
	enc      *codec.Encoder
	rec      *capture.Writer
	status   string
	input    textinput.Model
	mark     uint64
	selected int
	state    browseState
}

func newBrowseModel(tree *value.Tree, enc *codec.Encoder, rec *capture.Writer) *browseModel {
	return &browseModel{tree: tree, enc: enc, rec: rec, mark: tree.Clock()}
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) node(offset int) *value.Node {
	n, err := m.tree.NodeAt(offset)
	if err != nil {
		return nil
	}
	return n
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		if m.state == stateEdit {
			switch key.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.state = stateSelect
				m.err = nil
				return m, nil
			case "enter":
				m.commitEdit()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch key.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < m.tree.Descriptor().NumberFields()-1 {
				m.selected++
			}
		case "enter":
			m.startEdit()
		case "c":
			m.sendChanges()
		}
	}
	return m, nil
}

func (m *browseModel) startEdit() {
	n := m.node(m.selected)
	if n == nil || n.Kind() == pvtype.KindAggregate {
		return
	}
	current, err := pvjson.MarshalNode(n)
	if err != nil {
		m.err = err
		return
	}
	ti := textinput.New()
	ti.Prompt = strings.Join(n.Path(), ".") + ": "
	ti.Placeholder = n.Descriptor().TypeName()
	ti.SetValue(string(current))
	ti.Width = 60
	ti.Focus()
	m.input = ti
	m.err = nil
	m.state = stateEdit
}

// commitEdit assigns the edited JSON through a document that nests it
// under the node's path.
func (m *browseModel) commitEdit() {
	n := m.node(m.selected)
	doc := m.input.Value()
	path := n.Path()
	for i := len(path) - 1; i >= 0; i-- {
		doc = "{" + strconv.Quote(path[i]) + ":" + doc + "}"
	}
	if _, err := pvjson.ParseInto(m.tree, []byte(doc)); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.state = stateSelect
}

// sendChanges encodes what changed since the last send, records it when a
// capture is open and starts a new change window.
func (m *browseModel) sendChanges() {
	bits := m.tree.TouchedSince(m.mark)
	var err error
	if m.rec != nil {
		err = m.rec.WritePartial(m.tree, bits)
	} else {
		_, err = m.enc.EncodeMessage(m.tree, bits)
	}
	if err != nil {
		m.err = err
		return
	}
	m.mark = m.tree.Clock()
	m.status = fmt.Sprintf("sent %s", bits)
}

func (m *browseModel) View() string {
	var b strings.Builder
	d := m.tree.Descriptor()
	touched := m.tree.TouchedSince(m.mark)

	b.WriteString(titleStyle.Render("pvdata browser"))
	b.WriteString(" ")
	b.WriteString(d.TypeName())
	b.WriteString("\n\n")

	for off := 0; off < d.NumberFields(); off++ {
		n := m.node(off)
		if n == nil {
			continue
		}
		line := m.formatRow(off, n)
		marker := "  "
		if touched.Get(off) {
			marker = touchedStyle.Render("* ")
		}
		if off == m.selected {
			b.WriteString(marker + selectedStyle.Render("> "+line))
		} else {
			b.WriteString(marker + "  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.encodingPreview(touched))
	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.state {
	case stateSelect:
		b.WriteString(helpStyle.Render("↑/↓ select • enter edit • c send changes • q quit"))
	case stateEdit:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter assign • esc back"))
	}
	return b.String()
}

func (m *browseModel) formatRow(off int, n *value.Node) string {
	path := n.Path()
	name := n.Descriptor().TypeName()
	if len(path) > 0 {
		name = path[len(path)-1]
	}
	indent := strings.Repeat("  ", len(path))
	row := fmt.Sprintf("%3d %s%s %s", off, indent, nameStyle.Render(name), typeStyle.Render(n.Descriptor().TypeName()))
	if n.Kind() == pvtype.KindAggregate {
		return row
	}
	if text, err := pvjson.MarshalNode(n); err == nil {
		row += " = " + truncate(string(text), 60)
	}
	return row
}

// encodingPreview shows the partial message the touched offsets would
// produce on a fresh stream, leaving the browser's stream cache alone.
func (m *browseModel) encodingPreview(touched *bitset.BitSet) string {
	section, err := codec.NewEncoder().EncodePartial(m.tree, touched)
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("encode: %v", err))
	}
	text := hex.EncodeToString(section)
	if len(section) > maxHexBytes {
		text = hex.EncodeToString(section[:maxHexBytes]) + "…"
	}
	return fmt.Sprintf("changed %s  partial section %d bytes\n%s", touched, len(section), helpStyle.Render(text))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func runBrowse(e *env, args []string) error {
	fs := newFlags("browse", "")
	schemaPath := fs.String("schema", "", "schema file describing the record")
	valuesPath := fs.String("values", "", "initial values (JSON with comments)")
	recordPath := fs.String("record", "", "append every sent change to this capture file")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	d, err := loadRecord(e, *schemaPath)
	if err != nil {
		return err
	}
	tree, err := value.Bind(d)
	if err != nil {
		return err
	}
	if *valuesPath != "" {
		data, err := os.ReadFile(*valuesPath)
		if err != nil {
			return fmt.Errorf("read values: %w", err)
		}
		if _, err := pvjson.ParseInto(tree, data); err != nil {
			return err
		}
	}

	var rec *capture.Writer
	if *recordPath != "" {
		f, err := os.Create(*recordPath)
		if err != nil {
			return fmt.Errorf("create capture: %w", err)
		}
		defer f.Close()
		if rec, err = capture.NewWriter(f, capture.WithCodecOptions(e.codecOptions()...)); err != nil {
			return err
		}
		if err := rec.WriteFull(tree); err != nil {
			return err
		}
	}

	p := tea.NewProgram(newBrowseModel(tree, codec.NewEncoder(e.codecOptions()...), rec), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
