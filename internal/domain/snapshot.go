package domain

import "time"

// Snapshot is an immutable picture of a view. The slices are never mutated after the snapshot is built.
type Snapshot struct {
	Seq        uint64         `json:"seq"`
	At         time.Time      `json:"at"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Alpha      float64        `json:"alpha"`
	TotalWatts float64        `json:"total_watts"`
	Devices    []DeviceView   `json:"devices"`
	Sources    []EnergySource `json:"sources"`
}

// DeviceView is a device as the render layer sees it.
type DeviceView struct {
	Device
	Size    float64 `json:"size"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Feeding bool    `json:"feeding"`
}
