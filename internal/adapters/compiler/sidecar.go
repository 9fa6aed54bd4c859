package compiler

import (
	"fmt"
	"os"

	"github.com/magiconair/properties"

	"github.com/MiradoConsulting/RobocodeEngine/internal/domain/model"
)

// writeSidecar writes the engine's per-robot .properties metadata.
func writeSidecar(path string, spec model.CompetitorSpec, engineVersion string) error {
	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, kv := range [][2]string{
		{"robot.description", spec.Owner},
		{"robot.webpage", spec.URL},
		{"robocode.version", engineVersion},
		{"robot.java.source.included", "true"},
		{"robot.author.name", spec.Owner},
		{"robot.classname", spec.QualifiedClassName()},
		{"robot.name", spec.Name},
		{"robot.version", spec.Version},
	} {
		if _, _, err := p.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("sidecar %s: %w", kv[0], err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := p.Write(f, properties.UTF8); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
