package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/olekukonko/tablewriter"
)

type PartStat struct {
	Part

	// The worker that rendered the part.
	Worker int

	// Render time for the part.
	RenderTime time.Duration
}

type WorkerStat struct {
	// The worker id.
	Id int

	// Number of rendered parts and the percentage of total frame area
	// they represent.
	Parts        int
	FramePercent float32

	// Time spent rendering parts.
	RenderTime time.Duration
}

type FrameStats struct {
	// Individual part and worker stats.
	Parts   []PartStat
	Workers []WorkerStat

	// Env map capture time and the number of captured faces.
	EnvMapTime  time.Duration
	EnvMapFaces int

	// Time spent building point density indices.
	PointDensityTime time.Duration

	// Total render time for entire frame.
	RenderTime time.Duration
}

// Aggregate the part stats per worker.
func (fs *FrameStats) collectWorkers(numWorkers, frameArea int) {
	fs.Workers = make([]WorkerStat, numWorkers)
	for i := range fs.Workers {
		fs.Workers[i].Id = i
	}
	for _, ps := range fs.Parts {
		ws := &fs.Workers[ps.Worker]
		ws.Parts++
		ws.RenderTime += ps.RenderTime
		if frameArea > 0 {
			ws.FramePercent += 100 * float32(ps.RectX*ps.RectY) / float32(frameArea)
		}
	}
}

// Build a tabular representation of the frame statistics.
func (fs *FrameStats) Table() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Worker", "Parts", "% of frame", "Render time"})
	for _, stat := range fs.Workers {
		table.Append([]string{
			fmt.Sprintf("#%d", stat.Id),
			fmt.Sprintf("%d", stat.Parts),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			stat.RenderTime.String(),
		})
	}
	if fs.EnvMapFaces > 0 {
		table.Append([]string{"env maps", fmt.Sprintf("%d faces", fs.EnvMapFaces), "", fs.EnvMapTime.String()})
	}
	if fs.PointDensityTime > 0 {
		table.Append([]string{"point density", "", "", fs.PointDensityTime.String()})
	}
	table.SetFooter([]string{cpuid.CPU.BrandName, "", "TOTAL", fs.RenderTime.String()})

	table.Render()
	return buf.String()
}
