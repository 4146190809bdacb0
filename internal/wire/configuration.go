package wire

import (
	"fmt"

	"github.com/elektrokombinacija/stas/internal/core"
)

// configurationDoc is the self-describing tagged-union wire form of
// core.Configuration (spec §6): a configuration_type discriminator picks
// which nested object is populated.
type configurationDoc struct {
	ConfigurationType string    `json:"configuration_type"`
	OMPL              *omplDoc  `json:"ompl,omitempty"`
	Graph             *graphDoc `json:"graph,omitempty"`
}

type omplDoc struct {
	StateSpaceType string  `json:"state_space_type"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Theta          float64 `json:"theta,omitempty"`
	Z              float64 `json:"z,omitempty"`
	Qx             float64 `json:"qx,omitempty"`
	Qy             float64 `json:"qy,omitempty"`
	Qz             float64 `json:"qz,omitempty"`
	Qw             float64 `json:"qw,omitempty"`
}

type graphDoc struct {
	GraphType string `json:"graph_type"`
	Vertex    uint32 `json:"vertex"`
}

func encodeConfiguration(c core.Configuration) configurationDoc {
	switch c.Kind {
	case core.ConfigurationOMPLSE2:
		return configurationDoc{
			ConfigurationType: "ompl",
			OMPL:              &omplDoc{StateSpaceType: "se2", X: c.X, Y: c.Y, Theta: c.Theta},
		}
	case core.ConfigurationOMPLSE3:
		return configurationDoc{
			ConfigurationType: "ompl",
			OMPL: &omplDoc{
				StateSpaceType: "se3",
				X:              c.X, Y: c.Y, Z: c.Z,
				Qx: c.Qx, Qy: c.Qy, Qz: c.Qz, Qw: c.Qw,
			},
		}
	case core.ConfigurationGraph:
		return configurationDoc{
			ConfigurationType: "graph",
			Graph:             &graphDoc{GraphType: "point", Vertex: uint32(c.Vertex)},
		}
	default:
		return configurationDoc{ConfigurationType: "unknown"}
	}
}

func decodeConfiguration(d configurationDoc) (core.Configuration, error) {
	switch d.ConfigurationType {
	case "ompl":
		if d.OMPL == nil {
			return core.Configuration{}, fmt.Errorf("wire: configuration_type=ompl missing \"ompl\" object")
		}
		switch d.OMPL.StateSpaceType {
		case "se2":
			return core.SE2(d.OMPL.X, d.OMPL.Y, d.OMPL.Theta), nil
		case "se3":
			return core.SE3(d.OMPL.X, d.OMPL.Y, d.OMPL.Z, d.OMPL.Qx, d.OMPL.Qy, d.OMPL.Qz, d.OMPL.Qw), nil
		default:
			return core.Configuration{}, fmt.Errorf("wire: unknown ompl.state_space_type %q", d.OMPL.StateSpaceType)
		}
	case "graph":
		if d.Graph == nil {
			return core.Configuration{}, fmt.Errorf("wire: configuration_type=graph missing \"graph\" object")
		}
		// graph_type (point/sampled_point/grid) only affects how the
		// out-of-process planner interprets the vertex id; the allocation
		// and scheduling layers treat every graph configuration the same.
		return core.GraphConfiguration(core.VertexID(d.Graph.Vertex)), nil
	default:
		return core.Configuration{}, fmt.Errorf("wire: unknown configuration_type %q", d.ConfigurationType)
	}
}
