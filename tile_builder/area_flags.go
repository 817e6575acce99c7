package tile_builder

import (
	"fmt"

	"github.com/gorustyt/navtilecache/common"
	"github.com/gorustyt/navtilecache/detour"
)

const MAX_FLAGS = 16

// Area ids written into polygons by MeshProcess.
const (
	SAMPLE_POLYAREA_GROUND = iota
	SAMPLE_POLYAREA_WATER
	SAMPLE_POLYAREA_ROAD
	SAMPLE_POLYAREA_DOOR
	SAMPLE_POLYAREA_GRASS
	SAMPLE_POLYAREA_JUMP
)

// Flags registered by every InputGeom, in this order.
const (
	SAMPLE_POLYFLAGS_WALK     = 0x01   // Ability to walk (ground, grass, road)
	SAMPLE_POLYFLAGS_SWIM     = 0x02   // Ability to swim (water).
	SAMPLE_POLYFLAGS_DOOR     = 0x04   // Ability to move through doors.
	SAMPLE_POLYFLAGS_JUMP     = 0x08   // Ability to jump.
	SAMPLE_POLYFLAGS_DISABLED = 0x10   // Disabled polygon
	SAMPLE_POLYFLAGS_ALL      = 0xffff // All abilities.
)

const (
	DESC_SAMPLE_POLYFLAGS_WALK     = "Walk"
	DESC_SAMPLE_POLYFLAGS_SWIM     = "Swim"
	DESC_SAMPLE_POLYFLAGS_DOOR     = "Door"
	DESC_SAMPLE_POLYFLAGS_JUMP     = "Jump"
	DESC_SAMPLE_POLYFLAGS_DISABLED = "Disabled"
)

// AreaFlag is a named traversal ability. Cost is the traversal cost of every
// area carrying the flag.
type AreaFlag struct {
	Name string  `json:"name" yaml:"name"`
	Flag uint16  `json:"flag" yaml:"-"`
	Cost float32 `json:"cost" yaml:"cost"`
}

func (g *InputGeom) initFlags() {
	for _, name := range []string{
		DESC_SAMPLE_POLYFLAGS_WALK,
		DESC_SAMPLE_POLYFLAGS_SWIM,
		DESC_SAMPLE_POLYFLAGS_DOOR,
		DESC_SAMPLE_POLYFLAGS_JUMP,
		DESC_SAMPLE_POLYFLAGS_DISABLED,
	} {
		g.m_flags = append(g.m_flags, AreaFlag{Name: name, Flag: 1 << len(g.m_flags), Cost: 1})
	}
	g.m_areaFlags[SAMPLE_POLYAREA_GROUND] = SAMPLE_POLYFLAGS_WALK
	g.m_areaFlags[SAMPLE_POLYAREA_GRASS] = SAMPLE_POLYFLAGS_WALK
	g.m_areaFlags[SAMPLE_POLYAREA_ROAD] = SAMPLE_POLYFLAGS_WALK
	g.m_areaFlags[SAMPLE_POLYAREA_WATER] = SAMPLE_POLYFLAGS_SWIM
	g.m_areaFlags[SAMPLE_POLYAREA_DOOR] = SAMPLE_POLYFLAGS_WALK | SAMPLE_POLYFLAGS_DOOR
	g.m_areaFlags[SAMPLE_POLYAREA_JUMP] = SAMPLE_POLYFLAGS_JUMP
}

// AddFlag registers a named flag and returns its bit, the next free power of
// two.
func (g *InputGeom) AddFlag(name string, cost float32) (uint16, error) {
	if name == "" || !(cost > 0) || !common.IsFinite(cost) {
		return 0, fmt.Errorf("flag %q cost %v: %w", name, cost, common.ErrInvalidParam)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, f := range g.m_flags {
		if f.Name == name {
			return 0, fmt.Errorf("flag %q already registered: %w", name, common.ErrInvalidParam)
		}
	}
	if len(g.m_flags) >= MAX_FLAGS {
		return 0, fmt.Errorf("flag %q: %d registered: %w", name, len(g.m_flags), common.ErrCapacityExceeded)
	}
	flag := uint16(1) << len(g.m_flags)
	g.m_flags = append(g.m_flags, AreaFlag{Name: name, Flag: flag, Cost: cost})
	return flag, nil
}

func (g *InputGeom) GetFlag(name string) (uint16, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, f := range g.m_flags {
		if f.Name == name {
			return f.Flag, true
		}
	}
	return 0, false
}

func (g *InputGeom) GetFlags() []AreaFlag {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]AreaFlag(nil), g.m_flags...)
}

// SetAreaFlags sets the flag mask MeshProcess gives to polygons of area.
func (g *InputGeom) SetAreaFlags(area uint8, flags uint16) error {
	if int(area) >= detour.DT_MAX_AREAS {
		return fmt.Errorf("area %d: %w", area, common.ErrInvalidParam)
	}
	g.mu.Lock()
	g.m_areaFlags[area] = flags
	g.mu.Unlock()
	return nil
}

func (g *InputGeom) GetAreaFlags(area uint8) uint16 {
	if int(area) >= detour.DT_MAX_AREAS {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.m_areaFlags[area]
}

// QueryFilter builds a filter that includes polygons carrying any of the
// include flags and rejects those carrying an exclude flag. An empty include
// list admits every flag. Each area costs as much as its most expensive flag.
func (g *InputGeom) QueryFilter(include, exclude []string) (*detour.DtQueryFilter, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	lookup := func(names []string) (uint16, error) {
		var mask uint16
		for _, name := range names {
			found := false
			for _, f := range g.m_flags {
				if f.Name == name {
					mask |= f.Flag
					found = true
					break
				}
			}
			if !found {
				return 0, fmt.Errorf("flag %q: %w", name, common.ErrInvalidParam)
			}
		}
		return mask, nil
	}

	filter := detour.NewDtQueryFilter()
	if len(include) > 0 {
		mask, err := lookup(include)
		if err != nil {
			return nil, err
		}
		filter.SetIncludeFlags(mask)
	}
	mask, err := lookup(exclude)
	if err != nil {
		return nil, err
	}
	filter.SetExcludeFlags(mask)

	for area, flags := range g.m_areaFlags {
		cost := float32(1)
		first := true
		for _, f := range g.m_flags {
			if flags&f.Flag == 0 {
				continue
			}
			if first || f.Cost > cost {
				cost = f.Cost
			}
			first = false
		}
		filter.SetAreaCost(area, cost)
	}
	return filter, nil
}
