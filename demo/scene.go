package main

import (
	"fmt"
	"os"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/tile_builder"
	"gopkg.in/yaml.v3"
)

// Scene lists what is placed on top of the static mesh: area volumes, extra
// flags and the flags of each area.
type Scene struct {
	Flags     []tile_builder.AreaFlag `yaml:"flags"`
	AreaFlags map[uint8][]string      `yaml:"area_flags"`
	Volumes   []SceneVolume           `yaml:"volumes"`
}

type SceneVolume struct {
	Points [][3]float32 `yaml:"points"`
	Hmin   float32      `yaml:"hmin"`
	Hmax   float32      `yaml:"hmax"`
	Area   uint8        `yaml:"area"`
}

func loadScene(path string) (*Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var s Scene
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return &s, nil
}

// apply registers the scene on geom. Flags come first so that area flag
// names can refer to them.
func (s *Scene) apply(geom *tile_builder.InputGeom) error {
	for _, f := range s.Flags {
		if _, err := geom.AddFlag(f.Name, f.Cost); err != nil {
			return err
		}
	}
	for area, names := range s.AreaFlags {
		var mask uint16
		for _, name := range names {
			flag, ok := geom.GetFlag(name)
			if !ok {
				return fmt.Errorf("scene: area %d: unknown flag %q: %w", area, name, common.ErrInvalidParam)
			}
			mask |= flag
		}
		if err := geom.SetAreaFlags(area, mask); err != nil {
			return err
		}
	}
	for _, v := range s.Volumes {
		vol := tile_builder.ConvexVolume{Hmin: v.Hmin, Hmax: v.Hmax, Area: v.Area}
		for _, p := range v.Points {
			vol.Verts = append(vol.Verts, common.Vec3(p))
		}
		if _, err := geom.AddConvexVolume(vol); err != nil {
			return err
		}
	}
	return nil
}
