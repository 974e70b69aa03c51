package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/wippyai/pvdata/capture"
	"github.com/wippyai/pvdata/pvcopy"
	"github.com/wippyai/pvdata/pvjson"
	"github.com/wippyai/pvdata/pvtype"
	"github.com/wippyai/pvdata/schema"
	"github.com/wippyai/pvdata/value"
)

func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func loadRecord(e *env, path string) (*pvtype.Descriptor, error) {
	if path == "" {
		return nil, fmt.Errorf("--schema is required")
	}
	s, err := schema.LoadFile(e.reg, path)
	if err != nil {
		return nil, err
	}
	if s.Record == nil {
		return nil, fmt.Errorf("%s declares no record", path)
	}
	return s.Record, nil
}

func runSchema(e *env, args []string) error {
	fs := newFlags("schema", "<schema.yaml>")
	asYAML := fs.Bool("yaml", false, "print the record as a normalized schema document")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one schema file")
	}
	d, err := loadRecord(e, fs.Arg(0))
	if err != nil {
		return err
	}
	if *asYAML {
		out, err := schema.Format(d)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}
	fmt.Print(d.String())
	fmt.Printf("\nfields: %d  fingerprint: %s\n", d.NumberFields(), d.Fingerprint())
	return nil
}

func runRequest(e *env, args []string) error {
	fs := newFlags("request", "<request>")
	schemaPath := fs.String("schema", "", "schema file describing the master record")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one request string")
	}
	master, err := loadRecord(e, *schemaPath)
	if err != nil {
		return err
	}
	req, err := pvcopy.ParseRequest(fs.Arg(0))
	if err != nil {
		return err
	}
	p, err := pvcopy.Project(e.reg, master, req.Selection())
	if err != nil {
		return err
	}

	fmt.Printf("selection: %s\n\n", p.Selection())
	fmt.Print(p.View().String())
	fmt.Println()
	for v := 0; v < p.View().NumberFields(); v++ {
		m, _ := p.MasterOffset(v)
		_, path, _ := master.AtOffset(m)
		fmt.Printf("view %3d -> master %3d  %s\n", v, m, strings.Join(path, "."))
	}
	return nil
}

func runEncode(e *env, args []string) error {
	fs := newFlags("encode", "<values.jsonc>...")
	schemaPath := fs.String("schema", "", "schema file describing the record")
	out := fs.StringP("out", "o", "", "capture file to write")
	comp := fs.String("compression", "none", "payload compression: none, lz4 or zstd")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if *out == "" || fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("--out and at least one values file are required")
	}
	c, err := capture.ParseCompression(*comp)
	if err != nil {
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

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create capture: %w", err)
	}
	defer f.Close()
	w, err := capture.NewWriter(f, capture.WithCompression(c), capture.WithCodecOptions(e.codecOptions()...))
	if err != nil {
		return err
	}

	// The first file seeds the record; each later file becomes a partial
	// frame of the offsets it assigns.
	for i, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read values: %w", err)
		}
		bits, err := pvjson.ParseInto(tree, data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if i == 0 {
			err = w.WriteFull(tree)
		} else {
			err = w.WritePartial(tree, bits)
		}
		if err != nil {
			return err
		}
	}
	fmt.Printf("wrote %d frames to %s\n", w.Frames(), *out)
	return f.Close()
}

var (
	frameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func runDump(e *env, args []string) error {
	fs := newFlags("dump", "<file>")
	asJSON := fs.Bool("json", false, "print records as JSON")
	changed := fs.Bool("changed", false, "with --json, print only what each frame carried")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one capture file")
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	r, err := capture.NewReader(f, e.codecOptions()...)
	if err != nil {
		return err
	}
	styled := term.IsTerminal(int(os.Stdout.Fd()))
	render := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	return r.Replay(func(fr *capture.Frame) error {
		fmt.Println(render(frameStyle, fmt.Sprintf("#%d %s", fr.Seq, fr.Kind)) + " " +
			render(dimStyle, fmt.Sprintf("%s %d/%d bytes %s", fr.Compression, fr.Stored, fr.Size,
				fr.Time().UTC().Format("2006-01-02T15:04:05.000Z"))) + " " +
			render(changedStyle, "changed "+fr.Changed.String()))

		if !*asJSON {
			fmt.Print(fr.Tree.String())
			return nil
		}
		var opts []pvjson.Option
		opts = append(opts, pvjson.WithIndent("  "))
		if *changed && fr.Kind == capture.FramePartial {
			opts = append(opts, pvjson.WithMask(fr.Changed))
		}
		out, err := pvjson.Marshal(fr.Tree, opts...)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	})
}
