// Package stats computes occupancy analytics over floor-plan booths.
// Everything here is a pure function of the plan's shapes.
package stats

import (
	"math"

	"github.com/expohall/expohall/internal/floorplan"
)

// BoothStatistics summarizes booth occupancy on one plan. ByStatus always
// carries every status in the domain, so zero counts are explicit.
type BoothStatistics struct {
	Total      int                           `json:"total"`
	ByStatus   map[floorplan.BoothStatus]int `json:"byStatus"`
	ByCategory map[string]int                `json:"byCategory"`
}

// ComputeBoothStatistics counts booths by status and category.
// Booths with an unset status count as available.
func ComputeBoothStatistics(plan *floorplan.FloorPlan) BoothStatistics {
	s := BoothStatistics{
		ByStatus:   make(map[floorplan.BoothStatus]int, len(floorplan.AllStatuses)),
		ByCategory: make(map[string]int),
	}
	for _, status := range floorplan.AllStatuses {
		s.ByStatus[status] = 0
	}

	for _, shape := range plan.Shapes {
		if shape.Type != floorplan.ShapeBooth {
			continue
		}
		s.Total++

		status := shape.Metadata.Status
		if status == "" {
			status = floorplan.StatusAvailable
		}
		if status.Valid() {
			s.ByStatus[status]++
		}
		if shape.Metadata.Category != "" {
			s.ByCategory[shape.Metadata.Category]++
		}
	}
	return s
}

// Occupancy weight per status for the heatmap.
var statusWeights = map[floorplan.BoothStatus]float64{
	floorplan.StatusBooked:      1.0,
	floorplan.StatusReserved:    0.5,
	floorplan.StatusMaintenance: 0.25,
	floorplan.StatusAvailable:   0.0,
}

// HeatmapCell is one gridSize-sized bucket of the occupancy heatmap.
// Row/Col index the cell within the booth bounding box; X/Y is the cell
// origin in plan coordinates.
type HeatmapCell struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Weight float64 `json:"weight"`
}

// Heatmap is the computed occupancy grid for one plan.
type Heatmap struct {
	GridSize int           `json:"gridSize"`
	Rows     int           `json:"rows"`
	Cols     int           `json:"cols"`
	Cells    []HeatmapCell `json:"cells"`
}

// ComputeOccupancyHeatmap buckets booths into gridSize-sized cells spanning
// the booth bounding box. Each booth contributes its full status weight to
// the cell containing its center. Plans without booths yield an empty grid.
func ComputeOccupancyHeatmap(plan *floorplan.FloorPlan) Heatmap {
	gridSize := plan.GridSize
	if gridSize <= 0 {
		gridSize = floorplan.DefaultGridSize
	}
	hm := Heatmap{GridSize: gridSize, Cells: []HeatmapCell{}}

	booths := plan.Booths()
	if len(booths) == 0 {
		return hm
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range booths {
		minX = math.Min(minX, b.Geometry.X)
		minY = math.Min(minY, b.Geometry.Y)
		maxX = math.Max(maxX, b.Geometry.X+b.Geometry.Width)
		maxY = math.Max(maxY, b.Geometry.Y+b.Geometry.Height)
	}

	cell := float64(gridSize)
	cols := int(math.Ceil((maxX - minX) / cell))
	rows := int(math.Ceil((maxY - minY) / cell))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	hm.Rows, hm.Cols = rows, cols

	weights := make([]float64, rows*cols)
	for _, b := range booths {
		cx, cy := b.Geometry.Center()
		col := int((cx - minX) / cell)
		row := int((cy - minY) / cell)
		if col >= cols {
			col = cols - 1
		}
		if row >= rows {
			row = rows - 1
		}
		status := b.Metadata.Status
		if status == "" {
			status = floorplan.StatusAvailable
		}
		weights[row*cols+col] += statusWeights[status]
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			hm.Cells = append(hm.Cells, HeatmapCell{
				Row:    row,
				Col:    col,
				X:      minX + float64(col)*cell,
				Y:      minY + float64(row)*cell,
				Weight: weights[row*cols+col],
			})
		}
	}
	return hm
}
