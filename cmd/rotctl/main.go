package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	persistlog "voxeldisplay.ai/internal/persistence/log"
	"voxeldisplay.ai/internal/persistence/snapshot"
	"voxeldisplay.ai/internal/sim/rotation"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "convert":
			convertCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "list":
			listCmd(os.Args[2:])
			return
		case "audit":
			auditCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	_ = fs.Parse(args)
	for _, s := range rotation.All() {
		off := s.Offset()
		fmt.Printf("%2d  %-6s axis=%s degrees=%-3d offset=(%g,%g,%g)\n", s.Ordinal(), s.Name(), s.Axis(), s.Degrees(), off.X, off.Y, off.Z)
	}
}

func convertCmd(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	from := fs.String("from", "json", "input format: json|binary|tree (binary is hex)")
	to := fs.String("to", "binary", "output format: json|binary|tree (binary is hex)")
	in := fs.String("in", "", "input value (default: read stdin)")
	_ = fs.Parse(args)

	var raw []byte
	if *in != "" {
		raw = []byte(*in)
	} else {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		raw = b
	}
	out, err := convert(*from, *to, raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "convert:", err)
		os.Exit(1)
	}
	fmt.Println(strings.TrimRight(string(out), "\n"))
}

func convert(from, to string, in []byte) ([]byte, error) {
	s, err := decode(from, in)
	if err != nil {
		return nil, err
	}
	return encode(to, s)
}

func decode(format string, in []byte) (rotation.State, error) {
	switch format {
	case "json":
		return rotation.DecodeJSON(in)
	case "binary":
		b, err := hex.DecodeString(string(bytes.TrimSpace(in)))
		if err != nil {
			return 0, fmt.Errorf("hex: %w", err)
		}
		var s rotation.State
		err = s.UnmarshalBinary(b)
		return s, err
	case "tree":
		var n yaml.Node
		if err := yaml.Unmarshal(in, &n); err != nil {
			return 0, fmt.Errorf("yaml: %w", err)
		}
		return rotation.DecodeTree(&n)
	}
	return 0, fmt.Errorf("unknown format %q", format)
}

func encode(format string, s rotation.State) ([]byte, error) {
	switch format {
	case "json":
		return rotation.EncodeJSON(s)
	case "binary":
		b, err := rotation.EncodeBinary(s)
		if err != nil {
			return nil, err
		}
		return []byte(hex.EncodeToString(b)), nil
	case "tree":
		n, err := rotation.EncodeTree(s)
		if err != nil {
			return nil, err
		}
		return yaml.Marshal(n)
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	path := fs.String("path", "", "snapshot file (.snap.zst)")
	asJSON := fs.Bool("json", false, "print displays as JSON instead of YAML")
	_ = fs.Parse(args)
	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}
	snap, err := snapshot.ReadSnapshot(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(snap)
		return
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	_ = enc.Encode(snap)
	_ = enc.Close()
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	dir := fs.String("dir", "./data/displays/audit", "audit segment directory")
	_ = fs.Parse(args)
	if err := printAudit(os.Stdout, *dir); err != nil {
		fmt.Fprintln(os.Stderr, "audit:", err)
		os.Exit(1)
	}
}

// printAudit prints every entry of every segment in dir, oldest first.
func printAudit(w io.Writer, dir string) error {
	segs, err := persistlog.Segments(dir)
	if err != nil {
		return err
	}
	for _, path := range segs {
		entries, err := persistlog.ReadSegment(path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			from := "-"
			if e.From != nil {
				from = e.From.Name()
			}
			fmt.Fprintf(w, "%s pos=%v %s -> %s by=%s\n", e.Time.Format(time.RFC3339), e.Pos, from, e.To.Name(), e.By)
		}
	}
	return nil
}
