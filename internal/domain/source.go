package domain

const (
	MinShare = 0.0
	MaxShare = 100.0
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EnergySource is one contributor to the regional generation mix.
type EnergySource struct {
	Name     string     `json:"name"`
	Share    float64    `json:"share"`
	Location string     `json:"location"`
	Coord    Coordinate `json:"coordinates"`
	Icon     string     `json:"icon"`
}

// TotalShare sums every source's share. It is not guaranteed to equal 100.
func TotalShare(sources []EnergySource) float64 {
	var total float64
	for _, s := range sources {
		total += s.Share
	}
	return total
}
