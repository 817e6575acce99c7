package recast

import "github.com/gorustyt/navtilecache/common"

const (
	/// The number of spans allocated per span spool.
	/// @see RcSpanPool
	RC_SPANS_PER_POOL = 2048
	/// Defines the number of bits allocated to RcSpan::smin and RcSpan::smax.
	RC_SPAN_HEIGHT_BITS = 13
	/// Defines the maximum value for RcSpan::smin and RcSpan::smax.
	RC_SPAN_MAX_HEIGHT = (1 << RC_SPAN_HEIGHT_BITS) - 1

	spanMaxHeight = 0xffff
)

type RcSpan struct {
	Smin int     ///< The lower limit of the span. [Limit: < #smax]
	Smax int     ///< The upper limit of the span. [Limit: <= #RC_SPAN_MAX_HEIGHT]
	Area uint8   ///< The area id assigned to the span.
	Next *RcSpan ///< The next span higher up in column.
}

// / A memory pool used for quick allocation of spans within a heightfield.
// / @see RcHeightfield
type RcSpanPool struct {
	next  *RcSpanPool               ///< The next span pool.
	items [RC_SPANS_PER_POOL]RcSpan ///< Array of spans in the pool.
}

// / A dynamic heightfield representing obstructed space.
// / @ingroup recast
type RcHeightfield struct {
	Width    int         ///< The width of the heightfield. (Along the x-axis in cell units.)
	Height   int         ///< The height of the heightfield. (Along the z-axis in cell units.)
	Bmin     common.Vec3 ///< The minimum bounds in world space. [(x, y, z)]
	Bmax     common.Vec3 ///< The maximum bounds in world space. [(x, y, z)]
	Cs       float32     ///< The size of each cell. (On the xz-plane.)
	Ch       float32     ///< The height of each cell. (The minimum increment along the y-axis.)
	Spans    []*RcSpan   ///< Heightfield of spans (width*height).
	pools    *RcSpanPool ///< Linked list of span pools.
	freelist *RcSpan     ///< The next free span.
}

// SpanCount returns the number of spans with a non-null area.
func (hf *RcHeightfield) SpanCount() int {
	spanCount := 0
	for _, span := range hf.Spans {
		for ; span != nil; span = span.Next {
			if span.Area != RC_NULL_AREA {
				spanCount++
			}
		}
	}
	return spanCount
}

// / Marks non-walkable spans as walkable if their maximum is within @p walkableClimb of the span below them.
func RcFilterLowHangingWalkableObstacles(walkableClimb int, heightfield *RcHeightfield) {
	xSize := heightfield.Width
	zSize := heightfield.Height

	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			var previousSpan *RcSpan
			previousWasWalkable := false
			previousArea := uint8(RC_NULL_AREA)

			for span := heightfield.Spans[x+z*xSize]; span != nil; span = span.Next {
				walkable := span.Area != RC_NULL_AREA
				// If current span is not walkable, but there is walkable
				// span just below it, mark the span above it walkable too.
				if !walkable && previousWasWalkable {
					if common.Abs(span.Smax-previousSpan.Smax) <= walkableClimb {
						span.Area = previousArea
					}
				}
				// Copy walkable flag so that it cannot propagate
				// past multiple non-walkable objects.
				previousWasWalkable = walkable
				previousArea = span.Area
				previousSpan = span
			}
		}
	}
}

// / Marks spans that are ledges as not-walkable.
func RcFilterLedgeSpans(walkableHeight int, walkableClimb int, heightfield *RcHeightfield) {
	xSize := heightfield.Width
	zSize := heightfield.Height

	// Mark border spans.
	for z := 0; z < zSize; z++ {
		for x := 0; x < xSize; x++ {
			for span := heightfield.Spans[x+z*xSize]; span != nil; span = span.Next {
				// Skip non walkable spans.
				if span.Area == RC_NULL_AREA {
					continue
				}

				bot := span.Smax
				top := spanMaxHeight
				if span.Next != nil {
					top = span.Next.Smin
				}
				// Find neighbours minimum height.
				minNeighborHeight := spanMaxHeight

				// Min and max height of accessible neighbours.
				accessibleNeighborMinHeight := span.Smax
				accessibleNeighborMaxHeight := span.Smax

				for direction := 0; direction < 4; direction++ {
					dx := x + common.GetDirOffsetX(direction)
					dy := z + common.GetDirOffsetY(direction)
					// Skip neighbours which are out of bounds.
					if dx < 0 || dy < 0 || dx >= xSize || dy >= zSize {
						minNeighborHeight = min(minNeighborHeight, -walkableClimb-bot)
						continue
					}

					// From minus infinity to the first span.
					neighborSpan := heightfield.Spans[dx+dy*xSize]
					neighborBot := -walkableClimb
					neighborTop := spanMaxHeight
					if neighborSpan != nil {
						neighborTop = neighborSpan.Smin
					}
					// Skip neighbour if the gap between the spans is too small.
					if min(top, neighborTop)-max(bot, neighborBot) > walkableHeight {
						minNeighborHeight = min(minNeighborHeight, neighborBot-bot)
					}

					// Rest of the spans.
					for ; neighborSpan != nil; neighborSpan = neighborSpan.Next {
						neighborBot = neighborSpan.Smax
						neighborTop = spanMaxHeight
						if neighborSpan.Next != nil {
							neighborTop = neighborSpan.Next.Smin
						}

						// Skip neighbour if the gap between the spans is too small.
						if min(top, neighborTop)-max(bot, neighborBot) > walkableHeight {
							minNeighborHeight = min(minNeighborHeight, neighborBot-bot)

							// Find min/max accessible neighbour height.
							if common.Abs(neighborBot-bot) <= walkableClimb {
								accessibleNeighborMinHeight = min(accessibleNeighborMinHeight, neighborBot)
								accessibleNeighborMaxHeight = max(accessibleNeighborMaxHeight, neighborBot)
							}
						}
					}
				}

				// The current span is close to a ledge if the drop to any
				// neighbour span is less than the walkableClimb.
				if minNeighborHeight < -walkableClimb {
					span.Area = RC_NULL_AREA
				} else if (accessibleNeighborMaxHeight - accessibleNeighborMinHeight) > walkableClimb {
					// If the difference between all neighbours is too large,
					// we are at steep slope, mark the span as ledge.
					span.Area = RC_NULL_AREA
				}
			}
		}
	}
}

// / Marks walkable spans as not walkable if the clearance above the span is less than the specified height.
func RcFilterWalkableLowHeightSpans(walkableHeight int, heightfield *RcHeightfield) {
	// Remove walkable flag from spans which do not have enough
	// space above them for the agent to stand there.
	for _, span := range heightfield.Spans {
		for ; span != nil; span = span.Next {
			bot := span.Smax
			top := spanMaxHeight
			if span.Next != nil {
				top = span.Next.Smin
			}
			if (top - bot) < walkableHeight {
				span.Area = RC_NULL_AREA
			}
		}
	}
}
