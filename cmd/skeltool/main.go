// skeltool is a headless utility for inspecting how scenes batch.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Faultbox/skelbatch/internal/batch"
	"github.com/Faultbox/skelbatch/internal/config"
	"github.com/Faultbox/skelbatch/internal/logger"
	"github.com/Faultbox/skelbatch/internal/stage"
	"github.com/Faultbox/skelbatch/pkg/formats"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "stats":
		err = cmdStats(args)
	case "dump":
		err = cmdDump(args)
	case "check":
		err = cmdCheck(args)
	case "fmt":
		err = cmdFmt(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`skeltool - skeleton batching inspector

Usage:
  skeltool <command> [options] <scene.yaml>

Commands:
  stats <scene.yaml>        Assemble frames and print batch statistics
  dump <scene.yaml>         Print the material groups of one frame
  check <scene.yaml>        Validate a scene file
  fmt <scene.yaml> [output] Rewrite a scene file in canonical form

Options (stats, dump):
  -frames N       Frames to assemble (stats, default 1)
  -dt SECONDS     Time step between frames (default 1/60)
  -effect NAME    Vertex effect: none, jitter, swirl or tint
  -max-vertices N Vertex capacity per batch
  -config PATH    Config file

Examples:
  skeltool stats -frames 120 scenes/demo.yaml
  skeltool dump -max-vertices 16 scenes/demo.yaml`)
}

// frameArgs are the options shared by stats and dump.
type frameArgs struct {
	fs     *flag.FlagSet
	flags  *config.Flags
	frames *int
	dt     *float64
}

func parseFrameArgs(name string, args []string) (*frameArgs, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fa := &frameArgs{
		fs:     fs,
		flags:  config.RegisterFlags(fs),
		frames: fs.Int("frames", 1, "Frames to assemble"),
		dt:     fs.Float64("dt", 1.0/60, "Seconds between frames"),
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() < 1 {
		return nil, fmt.Errorf("usage: skeltool %s [options] <scene.yaml>", name)
	}
	return fa, nil
}

// openStage loads config and scene the way the viewer does, with
// textures that have no GPU storage.
func (fa *frameArgs) openStage() (*stage.Stage, error) {
	cfg, err := config.Load(fa.flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}

	scene, err := formats.LoadSkeleton(fa.fs.Arg(0))
	if err != nil {
		return nil, err
	}
	st, err := stage.New(scene, stage.PageResolver(stage.Pages(scene)), cfg.Batch)
	if err != nil {
		return nil, err
	}
	if err := st.SetEffect(cfg.Viewer.Effect); err != nil {
		st.Dispose()
		return nil, err
	}
	return st, nil
}

func cmdStats(args []string) error {
	fa, err := parseFrameArgs("stats", args)
	if err != nil {
		return err
	}
	st, err := fa.openStage()
	if err != nil {
		return err
	}
	defer st.Dispose()

	return writeStats(os.Stdout, st, *fa.frames, float32(*fa.dt))
}

func cmdDump(args []string) error {
	fa, err := parseFrameArgs("dump", args)
	if err != nil {
		return err
	}
	st, err := fa.openStage()
	if err != nil {
		return err
	}
	defer st.Dispose()

	for i := 0; i < *fa.frames; i++ {
		if err := st.Step(float32(*fa.dt)); err != nil {
			return err
		}
	}
	return writeDump(os.Stdout, st)
}

func cmdCheck(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: skeltool check <scene.yaml>")
	}
	for _, path := range args {
		scene, err := formats.LoadSkeleton(path)
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok (%d textures, %d bones, %d slots)\n",
			path, len(scene.Textures), len(scene.Bones), len(scene.Slots))
	}
	return nil
}

func cmdFmt(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: skeltool fmt <scene.yaml> [output]")
	}
	scene, err := formats.LoadSkeleton(args[0])
	if err != nil {
		return err
	}
	data, err := scene.Marshal()
	if err != nil {
		return err
	}
	if len(args) < 2 {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(args[1], data, 0o644)
}

// writeStats assembles frames and prints one row of counters per frame.
func writeStats(w io.Writer, st *stage.Stage, frames int, dt float32) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "frame\tparts\tskipped\tbatches\tgroups\tvertices\tindices\t")

	var total int
	for i := 0; i < frames; i++ {
		if err := st.Step(dt); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		s := st.Mesh.Stats()
		total += s.Groups
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
			i, s.Parts, s.Skipped, s.Batches, s.Groups, s.Vertices, s.Indices)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if frames > 0 {
		fmt.Fprintf(w, "\n%.2f draw calls per frame\n", float64(total)/float64(frames))
	}
	return nil
}

// writeDump prints every batch of the last frame with its groups.
func writeDump(w io.Writer, st *stage.Stage) error {
	for i, b := range st.Mesh.Batches() {
		fmt.Fprintf(w, "batch %d: %d/%d vertices, %d indices\n",
			i, b.VertexCount(), b.MaxVertices(), b.IndicesLength())

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  start\tcount\tslot\ttexture\tblend\tz")
		for _, g := range b.Groups() {
			m := b.Material(g.Material)
			lo, hi := zRange(b, g)
			fmt.Fprintf(tw, "  %d\t%d\t%d\t%s\t%s\t%.2f..%.2f\n",
				g.Start, g.Count, g.Material, textureName(m), m.Blend, lo, hi)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func textureName(m *batch.Material) string {
	if p, ok := m.Texture.(*stage.Page); ok {
		return p.Name
	}
	if m.Texture == nil {
		return "-"
	}
	return fmt.Sprintf("#%d", m.Texture.ID())
}

// zRange returns the smallest and largest z referenced by a group.
func zRange(b *batch.Batch, g batch.MaterialGroup) (lo, hi float32) {
	vertices := b.Vertices()
	for i, idx := range b.Indices()[g.Start : g.Start+g.Count] {
		z := vertices[int(idx)*batch.VertexSize+2]
		if i == 0 || z < lo {
			lo = z
		}
		if i == 0 || z > hi {
			hi = z
		}
	}
	return lo, hi
}
