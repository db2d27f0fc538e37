package registry

import (
	"time"

	"tradecore/model"
)

// SeedNodes returns the default trading network used when the configuration
// does not list its own nodes.
func SeedNodes() []model.Node {
	au := func(x, y, z float64) model.Position {
		return model.Position{X: x, Y: y, Z: z, Unit: model.Interplanetary}
	}
	ly := func(x, y, z float64) model.Position {
		return model.Position{X: x, Y: y, Z: z, Unit: model.Interstellar}
	}
	return []model.Node{
		{
			ID: "earth", Name: "Earth Central Exchange", Position: au(1, 0, 0),
			Status: model.NodeActive, Population: 9_800_000_000, Zone: model.ZoneSolInner,
			Resources: []string{"food", "electronics", "pharmaceuticals"},
			Partners:  []string{"luna", "mars", "ceres"},
		},
		{
			ID: "luna", Name: "Luna Tranquility Port", Position: au(1.00257, 0, 0),
			Status: model.NodeActive, Population: 2_400_000, Zone: model.ZoneSolInner,
			Resources: []string{"helium-3", "regolith"},
			Partners:  []string{"earth"},
			Latency:   1 * time.Second,
		},
		{
			ID: "mars", Name: "Mars Olympus Market", Position: au(-1.2, 0.9, 0.03),
			Status: model.NodeActive, Population: 48_000_000, Zone: model.ZoneSolInner,
			Resources: []string{"iron", "water", "deuterium"},
			Partners:  []string{"earth", "ceres"},
			Latency:   10 * time.Second,
		},
		{
			ID: "ceres", Name: "Ceres Belt Depot", Position: au(2.1, -1.8, 0.3),
			Status: model.NodeActive, Population: 1_100_000, Zone: model.ZoneSolOuter,
			Resources: []string{"nickel", "platinum", "water-ice"},
			Partners:  []string{"earth", "mars", "europa"},
			Latency:   20 * time.Second,
		},
		{
			ID: "europa", Name: "Europa Deep Station", Position: au(5.2, 0.4, -0.1),
			Status: model.NodeActive, Population: 350_000, Zone: model.ZoneSolOuter,
			Resources: []string{"water-ice", "biologics"},
			Partners:  []string{"ceres", "titan"},
			Latency:   40 * time.Second,
		},
		{
			ID: "titan", Name: "Titan Methane Works", Position: au(-8.4, 4.6, 0.2),
			Status: model.NodeActive, Population: 210_000, Zone: model.ZoneSolOuter,
			Resources: []string{"methane", "nitrogen", "hydrocarbons"},
			Partners:  []string{"europa"},
			Latency:   75 * time.Second,
		},
		{
			ID: "proxima-b", Name: "Proxima b Colony", Position: ly(-1.55, -1.18, -3.77),
			Status: model.NodeActive, Population: 3_200_000, Zone: model.ZoneCentauri,
			Resources: []string{"rare-earths", "exotic-matter"},
			Partners:  []string{"earth", "centauri-a"},
			Latency:   180 * time.Second,
		},
		{
			ID: "centauri-a", Name: "Alpha Centauri A Orbital", Position: ly(-1.64, -1.37, -3.84),
			Status: model.NodeEstablishing, Population: 640_000, Zone: model.ZoneCentauri,
			Resources: []string{"antimatter", "stellar-plasma"},
			Partners:  []string{"proxima-b"},
			Latency:   185 * time.Second,
		},
		{
			ID: "barnard-b", Name: "Barnard's Star Outpost", Position: ly(-0.06, -5.94, 0.49),
			Status: model.NodeEstablishing, Population: 45_000, Zone: model.ZoneBarnard,
			Resources: []string{"cryogenics", "heavy-metals"},
			Partners:  []string{"proxima-b"},
			Latency:   240 * time.Second,
		},
		{
			ID: "tau-ceti-e", Name: "Tau Ceti Frontier Post", Position: ly(10.27, 5.01, -3.26),
			Status: model.NodeOffline, Population: 8_000, Zone: model.ZoneFrontier,
			Resources: []string{"terraforming-stock"},
			Partners:  []string{"barnard-b"},
			Latency:   420 * time.Second,
		},
	}
}
