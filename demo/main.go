package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/bytedance/sonic"
	"github.com/gorustyt/navtilecache/common/logger"
	"github.com/gorustyt/navtilecache/debug_utils"
	"github.com/gorustyt/navtilecache/tile_builder"
	"go.uber.org/zap"
)

const usage = `usage: demo <command> [flags]

commands:
  build    rasterize an OBJ mesh and save the tile cache set
  inspect  load a tile cache set and print its statistics as JSON
  dump     load a tile cache set and write the navmesh as OBJ
`

type options struct {
	obj     string
	config  string
	scene   string
	set     string
	navmesh string
	layers  string
	scale   float64
	times   bool
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd := os.Args[1]

	var opts options
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	fs.StringVar(&opts.obj, "obj", "", "input OBJ mesh")
	fs.StringVar(&opts.config, "config", "", "YAML build settings, defaults when empty")
	fs.StringVar(&opts.scene, "scene", "", "YAML scene with flags and convex volumes")
	fs.StringVar(&opts.set, "set", "navmesh.tcs", "tile cache set file")
	fs.StringVar(&opts.navmesh, "navmesh", "navmesh.obj", "navmesh OBJ output of dump")
	fs.StringVar(&opts.layers, "layers", "", "layer table output of dump")
	fs.Float64Var(&opts.scale, "scale", 1, "scale applied to the OBJ vertices")
	fs.BoolVar(&opts.times, "times", false, "log build times")
	_ = fs.Parse(os.Args[2:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cmd {
	case "build":
		err = run(ctx, opts, build)
	case "inspect":
		err = run(ctx, opts, inspect)
	case "dump":
		err = run(ctx, opts, dump)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, fn func(context.Context, options, *tile_builder.NavCache) error) (err error) {
	cfg := tile_builder.DefaultConfig()
	if opts.config != "" {
		if cfg, err = tile_builder.LoadConfig(opts.config); err != nil {
			return err
		}
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		// Sync on a console fails with EINVAL on some systems.
		_ = log.Close()
	}()

	nc, err := newNavCache(opts, cfg, log)
	if err != nil {
		log.Error("setup failed", zap.Error(err))
		return err
	}
	defer nc.Close()

	if err := fn(ctx, opts, nc); err != nil {
		log.Error("command failed", zap.Error(err))
		nc.GetBuildContext().DumpLog(os.Stderr, "Build log")
		return err
	}
	if opts.times {
		bc := nc.GetBuildContext()
		debug_utils.DuLogBuildTimes(bc, bc.GetAccumulatedTime(tile_builder.TIMER_TOTAL),
			tile_builder.TIMER_RASTERIZE, tile_builder.TIMER_ADD_TILES,
			tile_builder.TIMER_BUILD_NAVMESH, tile_builder.TIMER_LOAD_TILE_SET)
	}
	return nil
}

func newNavCache(opts options, cfg tile_builder.Config, log *logger.Logger) (*tile_builder.NavCache, error) {
	if opts.obj == "" {
		return nil, errors.New("missing -obj")
	}
	mesh := tile_builder.NewMeshLoaderObj()
	mesh.SetScale(float32(opts.scale))
	f, err := os.Open(opts.obj)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := mesh.Load(f); err != nil {
		return nil, fmt.Errorf("%s: %w", opts.obj, err)
	}
	log.Info("mesh loaded", zap.String("file", opts.obj),
		zap.Int("verts", mesh.GetVertCount()), zap.Int("tris", mesh.GetTriCount()))

	geom, err := tile_builder.NewInputGeom(mesh.GetVerts(), mesh.GetTris(), nil, cfg.TrisPerChunk)
	if err != nil {
		return nil, err
	}
	if opts.scene != "" {
		scene, err := loadScene(opts.scene)
		if err != nil {
			return nil, err
		}
		if err := scene.apply(geom); err != nil {
			return nil, err
		}
	}
	return tile_builder.NewNavCache(geom, cfg, log)
}

func build(ctx context.Context, opts options, nc *tile_builder.NavCache) error {
	if err := nc.Build(ctx); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := nc.Save(&buf); err != nil {
		return err
	}
	return os.WriteFile(opts.set, buf.Bytes(), 0o644)
}

func loadSet(opts options, nc *tile_builder.NavCache) error {
	data, err := os.ReadFile(opts.set)
	if err != nil {
		return err
	}
	return nc.Load(bytes.NewReader(data))
}

func inspect(_ context.Context, opts options, nc *tile_builder.NavCache) error {
	if err := loadSet(opts, nc); err != nil {
		return err
	}
	out, err := sonic.ConfigStd.MarshalIndent(nc.GetStats(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}

func dump(_ context.Context, opts options, nc *tile_builder.NavCache) error {
	if err := loadSet(opts, nc); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := debug_utils.DuDumpNavMeshToObj(nc.GetNavMesh(), &buf); err != nil {
		return err
	}
	if err := os.WriteFile(opts.navmesh, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if opts.layers == "" {
		return nil
	}
	buf.Reset()
	if err := debug_utils.DuDumpTileCacheLayers(nc.GetTileCache(), &buf); err != nil {
		return err
	}
	return os.WriteFile(opts.layers, buf.Bytes(), 0o644)
}
